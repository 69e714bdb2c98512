// Package ledger implements the settlement core: building net balances from
// a trip's expenses and reducing them to a minimal set of transfers.
//
// All arithmetic is done in decimals at full precision. Rounding is a
// presentation concern and never happens here; the zero-sum invariant is
// checked against Epsilon instead.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tripperhq/tripper/internal/models"
)

// Epsilon is the largest residual tolerated when checking that balances sum
// to zero. Anything larger is a data-integrity error, not rounding noise.
var Epsilon = decimal.New(1, -6)

var (
	// ErrUnknownParticipant is returned when an expense references a payer
	// or split member outside the trip roster.
	ErrUnknownParticipant = errors.New("expense references participant outside the roster")

	// ErrEmptySplit is returned when an expense has no split members.
	ErrEmptySplit = errors.New("expense has no split participants")

	// ErrNonPositiveAmount is returned when an expense amount is zero or
	// negative.
	ErrNonPositiveAmount = errors.New("expense amount must be positive")

	// ErrShareMismatch is returned when an exact split's shares do not sum
	// to the expense amount.
	ErrShareMismatch = errors.New("exact split shares do not sum to the expense amount")

	// ErrNonZeroSum is returned when balances do not sum to zero within
	// Epsilon. It always indicates corrupted input, never a rounding issue.
	ErrNonZeroSum = errors.New("balances do not sum to zero")
)

// Balance is the computed position of one participant.
type Balance struct {
	UserID string

	// Net is TotalPaid − TotalShare. Positive = is owed money,
	// negative = owes money.
	Net decimal.Decimal

	// TotalPaid is the sum of amounts this participant paid as the
	// responsible party, plus settled payments they made.
	TotalPaid decimal.Decimal

	// TotalShare is the sum of this participant's fair shares across all
	// expenses they are split into, plus settled payments they received.
	TotalShare decimal.Decimal
}

// BuildBalances computes the net balance of every roster member from the
// trip's expenses and its settlement history. Settled payments count as if
// the debtor had paid an expense consumed entirely by the creditor, so
// history shifts balances without being re-derivable from expenses.
//
// Every expense is validated before it touches the ledger: an invalid
// expense aborts the whole computation rather than corrupting balances.
func BuildBalances(roster []string, expenses []models.Expense, history []models.SettlementRecord) (map[string]*Balance, error) {
	members := make(map[string]bool, len(roster))
	balances := make(map[string]*Balance, len(roster))
	for _, id := range roster {
		members[id] = true
		balances[id] = &Balance{UserID: id}
	}

	for _, exp := range expenses {
		shares, err := expenseShares(&exp, members)
		if err != nil {
			return nil, fmt.Errorf("expense %s: %w", exp.ID, err)
		}

		balances[exp.PayerID].TotalPaid = balances[exp.PayerID].TotalPaid.Add(exp.Amount)
		for userID, share := range shares {
			balances[userID].TotalShare = balances[userID].TotalShare.Add(share)
		}
	}

	for _, rec := range history {
		if !members[rec.DebtorID] || !members[rec.CreditorID] {
			return nil, fmt.Errorf("settlement record %s: %w", rec.ID, ErrUnknownParticipant)
		}
		balances[rec.DebtorID].TotalPaid = balances[rec.DebtorID].TotalPaid.Add(rec.Amount)
		balances[rec.CreditorID].TotalShare = balances[rec.CreditorID].TotalShare.Add(rec.Amount)
	}

	sum := decimal.Zero
	for _, bal := range balances {
		bal.Net = bal.TotalPaid.Sub(bal.TotalShare)
		sum = sum.Add(bal.Net)
	}
	if sum.Abs().GreaterThan(Epsilon) {
		return nil, fmt.Errorf("%w: residual %s", ErrNonZeroSum, sum)
	}

	return balances, nil
}

// Nets extracts the net balance per participant, the input shape the
// reducer consumes.
func Nets(balances map[string]*Balance) map[string]decimal.Decimal {
	nets := make(map[string]decimal.Decimal, len(balances))
	for id, bal := range balances {
		nets[id] = bal.Net
	}
	return nets
}

// expenseShares validates one expense and returns each split member's share.
func expenseShares(exp *models.Expense, members map[string]bool) (map[string]decimal.Decimal, error) {
	if !exp.Amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if len(exp.Splits) == 0 {
		return nil, ErrEmptySplit
	}
	if !members[exp.PayerID] {
		return nil, fmt.Errorf("%w: payer %s", ErrUnknownParticipant, exp.PayerID)
	}

	shares := make(map[string]decimal.Decimal, len(exp.Splits))

	switch exp.SplitMethod {
	case models.SplitExact:
		total := decimal.Zero
		for _, split := range exp.Splits {
			if !members[split.UserID] {
				return nil, fmt.Errorf("%w: split member %s", ErrUnknownParticipant, split.UserID)
			}
			shares[split.UserID] = shares[split.UserID].Add(split.Share)
			total = total.Add(split.Share)
		}
		if !total.Equal(exp.Amount) {
			return nil, fmt.Errorf("%w: shares sum to %s, amount is %s", ErrShareMismatch, total, exp.Amount)
		}

	default: // SplitEven, also the fallback for unset method
		share := exp.Amount.Div(decimal.NewFromInt(int64(len(exp.Splits))))
		for _, split := range exp.Splits {
			if !members[split.UserID] {
				return nil, fmt.Errorf("%w: split member %s", ErrUnknownParticipant, split.UserID)
			}
			shares[split.UserID] = shares[split.UserID].Add(share)
		}
	}

	return shares, nil
}
