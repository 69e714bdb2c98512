package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name         string
		nets         map[string]decimal.Decimal
		wantErr      error
		validateFunc func(t *testing.T, transfers []Transfer)
	}{
		{
			name: "one creditor two debtors",
			nets: map[string]decimal.Decimal{
				"alice":   dec("60"),
				"bob":     dec("-30"),
				"charlie": dec("-30"),
			},
			validateFunc: func(t *testing.T, transfers []Transfer) {
				want := []Transfer{
					{DebtorID: "bob", CreditorID: "alice", Amount: dec("30")},
					{DebtorID: "charlie", CreditorID: "alice", Amount: dec("30")},
				}
				assertTransfers(t, transfers, want)
			},
		},
		{
			name: "all zero balances produce no transfers",
			nets: map[string]decimal.Decimal{
				"alice": decimal.Zero,
				"bob":   decimal.Zero,
			},
			validateFunc: func(t *testing.T, transfers []Transfer) {
				if len(transfers) != 0 {
					t.Errorf("expected no transfers, got %v", transfers)
				}
			},
		},
		{
			name: "empty input",
			nets: map[string]decimal.Decimal{},
			validateFunc: func(t *testing.T, transfers []Transfer) {
				if len(transfers) != 0 {
					t.Errorf("expected no transfers, got %v", transfers)
				}
			},
		},
		{
			name: "largest debtor matches largest creditor first",
			nets: map[string]decimal.Decimal{
				"alice":   dec("50"),
				"bob":     dec("20"),
				"charlie": dec("-45"),
				"diana":   dec("-25"),
			},
			validateFunc: func(t *testing.T, transfers []Transfer) {
				want := []Transfer{
					{DebtorID: "charlie", CreditorID: "alice", Amount: dec("45")},
					{DebtorID: "diana", CreditorID: "alice", Amount: dec("5")},
					{DebtorID: "diana", CreditorID: "bob", Amount: dec("20")},
				}
				assertTransfers(t, transfers, want)
			},
		},
		{
			name: "at most n-1 transfers",
			nets: map[string]decimal.Decimal{
				"a": dec("10"),
				"b": dec("10"),
				"c": dec("10"),
				"d": dec("-10"),
				"e": dec("-10"),
				"f": dec("-10"),
			},
			validateFunc: func(t *testing.T, transfers []Transfer) {
				if len(transfers) > 5 {
					t.Errorf("expected at most 5 transfers for 6 participants, got %d", len(transfers))
				}
			},
		},
		{
			name: "residual below epsilon is dropped",
			nets: map[string]decimal.Decimal{
				"alice": dec("0.0000000001"),
				"bob":   dec("-0.0000000001"),
			},
			validateFunc: func(t *testing.T, transfers []Transfer) {
				if len(transfers) != 0 {
					t.Errorf("expected sub-epsilon residuals to be ignored, got %v", transfers)
				}
			},
		},
		{
			name: "single nonzero balance is a data-integrity error",
			nets: map[string]decimal.Decimal{
				"alice": dec("42"),
			},
			wantErr: ErrNonZeroSum,
		},
		{
			name: "non-zero-sum input is reported",
			nets: map[string]decimal.Decimal{
				"alice": dec("10"),
				"bob":   dec("-4"),
			},
			wantErr: ErrNonZeroSum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transfers, err := Reduce(tt.nets)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Reduce() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reduce() error = %v", err)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, transfers)
			}
		})
	}
}

func TestReduce_ZeroesEveryBalance(t *testing.T) {
	nets := map[string]decimal.Decimal{
		"alice":   dec("123.45"),
		"bob":     dec("-67.89"),
		"charlie": dec("-55.56"),
		"diana":   dec("10"),
		"erin":    dec("-10"),
	}

	transfers, err := Reduce(nets)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}

	remaining := make(map[string]decimal.Decimal, len(nets))
	for id, net := range nets {
		remaining[id] = net
	}
	for _, tr := range transfers {
		if !tr.Amount.IsPositive() {
			t.Errorf("transfer %s→%s has non-positive amount %s", tr.DebtorID, tr.CreditorID, tr.Amount)
		}
		if tr.DebtorID == tr.CreditorID {
			t.Errorf("self-transfer for %s", tr.DebtorID)
		}
		remaining[tr.DebtorID] = remaining[tr.DebtorID].Add(tr.Amount)
		remaining[tr.CreditorID] = remaining[tr.CreditorID].Sub(tr.Amount)
	}

	for id, net := range remaining {
		if !net.IsZero() {
			t.Errorf("balance for %s not zeroed, remaining %s", id, net)
		}
	}
}

func TestReduce_Deterministic(t *testing.T) {
	nets := map[string]decimal.Decimal{
		"alice":   dec("30"),
		"bob":     dec("30"),
		"charlie": dec("-20"),
		"diana":   dec("-20"),
		"erin":    dec("-20"),
	}

	first, err := Reduce(nets)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}

	for run := 0; run < 10; run++ {
		again, err := Reduce(nets)
		if err != nil {
			t.Fatalf("Reduce() error = %v", err)
		}
		assertTransfers(t, again, first)
	}
}

func assertTransfers(t *testing.T, got, want []Transfer) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d transfers %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i].DebtorID != want[i].DebtorID || got[i].CreditorID != want[i].CreditorID {
			t.Errorf("transfer %d = %s→%s, want %s→%s",
				i, got[i].DebtorID, got[i].CreditorID, want[i].DebtorID, want[i].CreditorID)
		}
		if !got[i].Amount.Equal(want[i].Amount) {
			t.Errorf("transfer %d amount = %s, want %s", i, got[i].Amount, want[i].Amount)
		}
	}
}
