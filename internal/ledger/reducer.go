package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Transfer is one debtor→creditor payment produced by the reducer.
type Transfer struct {
	DebtorID   string
	CreditorID string
	Amount     decimal.Decimal
}

// party is one side of the matching: a participant and the magnitude still
// outstanding on their side.
type party struct {
	userID string
	amount decimal.Decimal
}

// Reduce converts net balances into a minimal list of transfers whose
// application zeroes every balance. Participants are partitioned into
// debtors and creditors, each side sorted by magnitude descending with user
// ID as the tie-break, and greedily matched largest against largest. Each
// match fully clears at least one side, so at most n−1 transfers are
// produced for n participants with nonzero balance.
//
// The sort makes the output deterministic: the same balance map always
// yields the same transfers in the same order, which keeps settlement
// regeneration idempotent.
func Reduce(nets map[string]decimal.Decimal) ([]Transfer, error) {
	var debtors, creditors []party
	for userID, net := range nets {
		switch {
		case net.Abs().LessThanOrEqual(Epsilon):
			// Settled up, or residual below noise.
		case net.IsNegative():
			debtors = append(debtors, party{userID: userID, amount: net.Neg()})
		default:
			creditors = append(creditors, party{userID: userID, amount: net})
		}
	}

	sortParties(debtors)
	sortParties(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]

		amount := decimal.Min(debtor.amount, creditor.amount)
		transfers = append(transfers, Transfer{
			DebtorID:   debtor.userID,
			CreditorID: creditor.userID,
			Amount:     amount,
		})

		debtor.amount = debtor.amount.Sub(amount)
		creditor.amount = creditor.amount.Sub(amount)
		if debtor.amount.LessThanOrEqual(Epsilon) {
			i++
		}
		if creditor.amount.LessThanOrEqual(Epsilon) {
			j++
		}
	}

	// One side emptying before the other means the input was not zero-sum.
	// Report it; a participant must never be silently dropped.
	for ; i < len(debtors); i++ {
		if debtors[i].amount.GreaterThan(Epsilon) {
			return nil, fmt.Errorf("%w: debtor %s left owing %s", ErrNonZeroSum, debtors[i].userID, debtors[i].amount)
		}
	}
	for ; j < len(creditors); j++ {
		if creditors[j].amount.GreaterThan(Epsilon) {
			return nil, fmt.Errorf("%w: creditor %s left owed %s", ErrNonZeroSum, creditors[j].userID, creditors[j].amount)
		}
	}

	return transfers, nil
}

// sortParties orders by magnitude descending, user ID ascending on ties.
func sortParties(parties []party) {
	sort.Slice(parties, func(a, b int) bool {
		if !parties[a].amount.Equal(parties[b].amount) {
			return parties[a].amount.GreaterThan(parties[b].amount)
		}
		return parties[a].userID < parties[b].userID
	})
}
