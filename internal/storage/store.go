// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tripperhq/tripper/internal/models"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned on unique-constraint violations (email
	// already registered, participant already on the trip).
	ErrDuplicate = errors.New("already exists")

	// ErrVersionConflict is returned when a mutation's expected trip
	// version no longer matches the stored one. The caller re-reads and
	// retries; nothing was written.
	ErrVersionConflict = errors.New("trip was modified concurrently")

	// ErrAlreadySettled is returned when a settle targets a settlement
	// that already went through. The duplicate attempt changes nothing.
	ErrAlreadySettled = errors.New("settlement already settled")
)

// Store defines the interface for Tripper's persistence operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
//
// Every mutation that touches a trip's derived state takes the trip version
// the caller computed against and runs in a single transaction: the version
// is checked and bumped atomically, so two writers racing on the same trip
// cannot both apply work based on the same stale ledger snapshot.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email, or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID, or ErrNotFound.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users keyed by ID. Missing users
	// are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// CreateTrip persists a new trip and enrolls the creator as its first
	// participant. The trip.ID, CreatedAt and Version fields are
	// populated by the store.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip retrieves a trip by ID, or ErrNotFound.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// ListTripsByUser retrieves the trips a user participates in, newest
	// first.
	ListTripsByUser(ctx context.Context, userID string) ([]*models.Trip, error)

	// ListParticipants retrieves the trip's roster.
	ListParticipants(ctx context.Context, tripID string) ([]*models.Participant, error)

	// AddParticipant enrolls a user, guarded by the trip version.
	AddParticipant(ctx context.Context, tripID, userID string, expectedVersion int64) (*models.Trip, error)

	// RemoveParticipant removes a user from the roster, guarded by the
	// trip version. Historical expenses referencing the user stay.
	RemoveParticipant(ctx context.Context, tripID, userID string, expectedVersion int64) (*models.Trip, error)

	// GetExpense retrieves an expense with its splits, or ErrNotFound.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByTrip retrieves all expenses for a trip in creation
	// order.
	ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error)

	// CreateExpense inserts the expense and atomically replaces the
	// trip's open settlements with the regenerated set, guarded by the
	// trip version.
	CreateExpense(ctx context.Context, expense *models.Expense, open []*models.Settlement, expectedVersion int64) (*models.Trip, error)

	// DeleteExpense removes the expense and atomically replaces the
	// trip's open settlements with the regenerated set, guarded by the
	// trip version.
	DeleteExpense(ctx context.Context, tripID, expenseID string, open []*models.Settlement, expectedVersion int64) (*models.Trip, error)

	// GetSettlement retrieves an open settlement, ErrAlreadySettled if it
	// only exists in history, or ErrNotFound.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListOpenSettlements retrieves the trip's open settlements in
	// generation order.
	ListOpenSettlements(ctx context.Context, tripID string) ([]*models.Settlement, error)

	// ApplySettlement records a confirmed payment against an open
	// settlement: the history record is appended and the settlement's
	// outstanding amount is set to remaining, deleting the row when
	// remaining is zero. Guarded by the trip version; a settlement that
	// already went through yields ErrAlreadySettled and writes nothing.
	ApplySettlement(ctx context.Context, tripID, settlementID string, remaining decimal.Decimal, record *models.SettlementRecord, expectedVersion int64) (*models.Trip, error)

	// ListSettlementHistory retrieves the append-only history for a trip,
	// newest first.
	ListSettlementHistory(ctx context.Context, tripID string) ([]*models.SettlementRecord, error)

	// Close releases any resources held by the store.
	Close() error
}
