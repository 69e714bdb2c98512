package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tripperhq/tripper/internal/models"
	"github.com/tripperhq/tripper/internal/storage"
)

// seedTrip sets up alice, bob and charlie on one trip with a single 90 EUR
// dinner paid by alice and split evenly, leaving bob and charlie owing 30
// each.
func seedTrip(t *testing.T, env *testEnv) (alice, bob, charlie *models.User, trip *models.Trip) {
	t.Helper()
	ctx := context.Background()

	alice = env.createUser(t, "alice@example.com", "Alice")
	bob = env.createUser(t, "bob@example.com", "Bob")
	charlie = env.createUser(t, "charlie@example.com", "Charlie")
	trip = env.createTrip(t, alice, bob, charlie)

	result, err := env.expenses.AddExpense(ctx, alice.ID, trip.ID, ExpenseInput{
		Name:        "Dinner",
		Amount:      dec("90"),
		PayerID:     alice.ID,
		SplitMethod: models.SplitEven,
		Splits: []models.ExpenseSplit{
			{UserID: alice.ID}, {UserID: bob.ID}, {UserID: charlie.ID},
		},
	}, 0)
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	return alice, bob, charlie, result.Trip
}

func openSettlementFor(t *testing.T, env *testEnv, actorID, tripID, debtorID string) *models.Settlement {
	t.Helper()
	open, err := env.settlements.ListOpen(context.Background(), actorID, tripID)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	for _, settlement := range open {
		if settlement.DebtorID == debtorID {
			return settlement
		}
	}
	t.Fatalf("no open settlement with debtor %s", debtorID)
	return nil
}

func TestSettlementService_Balances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob, _, trip := seedTrip(t, env)

	summary, err := env.settlements.Balances(ctx, alice.ID, trip.ID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}

	nets := make(map[string]string)
	names := make(map[string]string)
	for _, bal := range summary.Balances {
		nets[bal.UserID] = bal.Net.String()
		names[bal.UserID] = bal.DisplayName
	}
	if nets[alice.ID] != "60" {
		t.Errorf("alice net = %s, want 60", nets[alice.ID])
	}
	if nets[bob.ID] != "-30" {
		t.Errorf("bob net = %s, want -30", nets[bob.ID])
	}
	if names[alice.ID] != "Alice" || names[bob.ID] != "Bob" {
		t.Errorf("got display names %v, want Alice and Bob resolved", names)
	}

	if !summary.Aggregates.TotalPaid.Equal(dec("90")) {
		t.Errorf("alice TotalPaid = %s, want 90", summary.Aggregates.TotalPaid)
	}
	if !summary.Aggregates.OwedToMe.Equal(dec("60")) {
		t.Errorf("alice OwedToMe = %s, want 60", summary.Aggregates.OwedToMe)
	}
	if !summary.Aggregates.IOwe.IsZero() {
		t.Errorf("alice IOwe = %s, want 0", summary.Aggregates.IOwe)
	}
}

func TestSettlementService_Settle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob, charlie, trip := seedTrip(t, env)

	t.Run("full settle closes and records", func(t *testing.T) {
		settlement := openSettlementFor(t, env, bob.ID, trip.ID, bob.ID)

		result, err := env.settlements.Settle(ctx, bob.ID, trip.ID, settlement.ID, dec("30"), 0)
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		if result.Settlement.Status != models.SettlementSettled {
			t.Errorf("settlement status = %s, want settled", result.Settlement.Status)
		}
		if !result.Record.Amount.Equal(dec("30")) || result.Record.CreditorID != alice.ID {
			t.Errorf("got record %+v", result.Record)
		}
		if !result.Aggregates.IOwe.IsZero() {
			t.Errorf("bob IOwe = %s after settling, want 0", result.Aggregates.IOwe)
		}

		history, err := env.settlements.History(ctx, bob.ID, trip.ID)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("got %d history entries, want 1", len(history))
		}

		// Alice's side drops by the same 30.
		summary, err := env.settlements.Balances(ctx, alice.ID, trip.ID)
		if err != nil {
			t.Fatalf("Balances failed: %v", err)
		}
		if !summary.Aggregates.OwedToMe.Equal(dec("30")) {
			t.Errorf("alice OwedToMe = %s, want 30", summary.Aggregates.OwedToMe)
		}
	})

	t.Run("settling twice is rejected", func(t *testing.T) {
		settlements, err := env.store.ListSettlementHistory(ctx, trip.ID)
		if err != nil || len(settlements) == 0 {
			t.Fatalf("expected history, got %v / %v", settlements, err)
		}
		_, err = env.settlements.Settle(ctx, bob.ID, trip.ID, settlements[0].SettlementID, dec("30"), 0)
		if !errors.Is(err, storage.ErrAlreadySettled) {
			t.Errorf("expected ErrAlreadySettled, got %v", err)
		}
	})

	t.Run("partial settle shrinks the settlement", func(t *testing.T) {
		settlement := openSettlementFor(t, env, charlie.ID, trip.ID, charlie.ID)

		result, err := env.settlements.Settle(ctx, charlie.ID, trip.ID, settlement.ID, dec("10"), 0)
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		if result.Settlement.Status != models.SettlementOpen {
			t.Errorf("settlement status = %s, want open", result.Settlement.Status)
		}
		if !result.Settlement.Amount.Equal(dec("20")) {
			t.Errorf("remaining = %s, want 20", result.Settlement.Amount)
		}
		if !result.Aggregates.IOwe.Equal(dec("20")) {
			t.Errorf("charlie IOwe = %s, want 20", result.Aggregates.IOwe)
		}
	})

	t.Run("overpaying is rejected", func(t *testing.T) {
		settlement := openSettlementFor(t, env, charlie.ID, trip.ID, charlie.ID)
		_, err := env.settlements.Settle(ctx, charlie.ID, trip.ID, settlement.ID, dec("25"), 0)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("only the debtor or admin may settle", func(t *testing.T) {
		settlement := openSettlementFor(t, env, charlie.ID, trip.ID, charlie.ID)
		_, err := env.settlements.Settle(ctx, bob.ID, trip.ID, settlement.ID, dec("20"), 0)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("the admin can reconcile a cash payment", func(t *testing.T) {
		settlement := openSettlementFor(t, env, alice.ID, trip.ID, charlie.ID)
		result, err := env.settlements.Settle(ctx, alice.ID, trip.ID, settlement.ID, dec("20"), 0)
		if err != nil {
			t.Fatalf("admin Settle failed: %v", err)
		}
		if result.Record.SettledBy != alice.ID {
			t.Errorf("SettledBy = %s, want %s", result.Record.SettledBy, alice.ID)
		}

		open, err := env.settlements.ListOpen(ctx, alice.ID, trip.ID)
		if err != nil {
			t.Fatalf("ListOpen failed: %v", err)
		}
		if len(open) != 0 {
			t.Errorf("got %d open settlements after full settlement, want 0", len(open))
		}
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		result, err := env.expenses.AddExpense(ctx, alice.ID, trip.ID, ExpenseInput{
			Name:        "Taxi",
			Amount:      dec("20"),
			PayerID:     bob.ID,
			SplitMethod: models.SplitEven,
			Splits:      []models.ExpenseSplit{{UserID: alice.ID}, {UserID: bob.ID}},
		}, 0)
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		settlement := openSettlementFor(t, env, alice.ID, trip.ID, alice.ID)
		_, err = env.settlements.Settle(ctx, alice.ID, trip.ID, settlement.ID, dec("10"), result.Trip.Version-1)
		if !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("expected ErrVersionConflict, got %v", err)
		}
	})
}
