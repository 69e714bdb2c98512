package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tripperhq/tripper/internal/models"
	"github.com/tripperhq/tripper/internal/storage"
	"github.com/tripperhq/tripper/internal/storage/sqlite"
)

// testEnv wires the services against a fresh temp-file SQLite store.
type testEnv struct {
	store       *sqlite.SQLiteStore
	trips       *TripService
	expenses    *ExpenseService
	settlements *SettlementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripper-service-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &testEnv{
		store:       store,
		trips:       NewTripService(store),
		expenses:    NewExpenseService(store),
		settlements: NewSettlementService(store),
	}
}

func (env *testEnv) createUser(t *testing.T, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := env.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

// createTrip creates a trip for creator and enrolls the given members.
func (env *testEnv) createTrip(t *testing.T, creator *models.User, members ...*models.User) *models.Trip {
	t.Helper()
	ctx := context.Background()

	trip, err := env.trips.CreateTrip(ctx, creator.ID, CreateTripInput{
		Name:      "Lisbon",
		Currency:  "EUR",
		StartDate: 1760000000,
		EndDate:   1760600000,
	})
	if err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}
	for _, member := range members {
		trip, err = env.trips.AddParticipant(ctx, creator.ID, trip.ID, member.ID, trip.Version)
		if err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}
	}
	return trip
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTripService_CreateTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com", "Alice")

	tests := []struct {
		name    string
		input   CreateTripInput
		wantErr bool
	}{
		{
			name:  "valid trip",
			input: CreateTripInput{Name: "Lisbon", Currency: "EUR", StartDate: 1, EndDate: 2},
		},
		{
			name:    "missing name",
			input:   CreateTripInput{Currency: "EUR", StartDate: 1, EndDate: 2},
			wantErr: true,
		},
		{
			name:    "bad currency",
			input:   CreateTripInput{Name: "Lisbon", Currency: "EURO", StartDate: 1, EndDate: 2},
			wantErr: true,
		},
		{
			name:    "ends before it starts",
			input:   CreateTripInput{Name: "Lisbon", Currency: "EUR", StartDate: 2, EndDate: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip, err := env.trips.CreateTrip(ctx, alice.ID, tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("CreateTrip() error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTrip() error = %v", err)
			}
			if trip.CreatorID != alice.ID || trip.Version != 1 {
				t.Errorf("got trip %+v, want creator %s at version 1", trip, alice.ID)
			}
		})
	}
}

func TestTripService_Roster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "Alice")
	bob := env.createUser(t, "bob@example.com", "Bob")
	mallory := env.createUser(t, "mallory@example.com", "Mallory")

	trip := env.createTrip(t, alice, bob)

	t.Run("only the admin manages the roster", func(t *testing.T) {
		_, err := env.trips.AddParticipant(ctx, bob.ID, trip.ID, mallory.ID, 0)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("the admin cannot be removed", func(t *testing.T) {
		_, err := env.trips.RemoveParticipant(ctx, alice.ID, trip.ID, alice.ID, 0)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("removal blocked while settlements are open", func(t *testing.T) {
		_, err := env.expenses.AddExpense(ctx, alice.ID, trip.ID, ExpenseInput{
			Name:        "Dinner",
			Amount:      dec("60"),
			PayerID:     alice.ID,
			SplitMethod: models.SplitEven,
			Splits:      []models.ExpenseSplit{{UserID: alice.ID}, {UserID: bob.ID}},
		}, 0)
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}

		_, err = env.trips.RemoveParticipant(ctx, alice.ID, trip.ID, bob.ID, 0)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput while bob owes money, got %v", err)
		}
	})

	t.Run("outsiders cannot read the trip", func(t *testing.T) {
		_, err := env.trips.GetTripDetails(ctx, mallory.ID, trip.ID)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("details include expenses and settlements", func(t *testing.T) {
		details, err := env.trips.GetTripDetails(ctx, bob.ID, trip.ID)
		if err != nil {
			t.Fatalf("GetTripDetails failed: %v", err)
		}
		if len(details.Participants) != 2 || len(details.Expenses) != 1 || len(details.Settlements) != 1 {
			t.Errorf("got %d participants, %d expenses, %d settlements; want 2, 1, 1",
				len(details.Participants), len(details.Expenses), len(details.Settlements))
		}
	})

	t.Run("stale version is rejected before writing", func(t *testing.T) {
		current, err := env.store.GetTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		_, err = env.trips.AddParticipant(ctx, alice.ID, trip.ID, mallory.ID, current.Version-1)
		if !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("expected ErrVersionConflict, got %v", err)
		}
	})
}
