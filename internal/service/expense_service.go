package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tripperhq/tripper/internal/ledger"
	"github.com/tripperhq/tripper/internal/metrics"
	"github.com/tripperhq/tripper/internal/models"
	"github.com/tripperhq/tripper/internal/storage"
)

// ExpenseService handles expense mutations and the settlement regeneration
// they trigger.
type ExpenseService struct {
	store storage.Store
	trips *TripService
}

// NewExpenseService creates a new ExpenseService with the given storage
// backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store, trips: NewTripService(store)}
}

// ExpenseInput is the payload for AddExpense.
type ExpenseInput struct {
	Name        string
	Amount      decimal.Decimal
	PayerID     string
	SplitMethod models.SplitMethod
	Splits      []models.ExpenseSplit
}

// ExpenseResult is returned by expense mutations: the affected entity plus
// the regenerated open settlements, so the client can merge without a full
// re-fetch.
type ExpenseResult struct {
	Trip        *models.Trip         `json:"trip"`
	Expense     *models.Expense      `json:"expense,omitempty"`
	Settlements []*models.Settlement `json:"settlements"`
}

// AddExpense validates and persists a new expense, regenerating the trip's
// open settlements in the same transaction. The actor must be a trip
// participant.
func (s *ExpenseService) AddExpense(ctx context.Context, actorID, tripID string, input ExpenseInput, expectedVersion int64) (*ExpenseResult, error) {
	trip, participants, err := s.trips.requireParticipant(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(trip, expectedVersion); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		TripID:      tripID,
		Name:        input.Name,
		Amount:      input.Amount,
		PayerID:     input.PayerID,
		SplitMethod: input.SplitMethod,
		Splits:      input.Splits,
	}
	if err := validateExpense(expense, participants); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	expenses = append(expenses, expense)

	open, err := s.regenerate(ctx, tripID, participants, expenses)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.CreateExpense(ctx, expense, open, trip.Version)
	if errors.Is(err, storage.ErrVersionConflict) {
		metrics.VersionConflicts.Inc()
		return nil, err
	}
	if err != nil {
		slog.Error("AddExpense failed", "trip_id", tripID, "error", err)
		return nil, err
	}

	metrics.ExpensesCreated.Inc()
	slog.Info("Expense added",
		"trip_id", tripID,
		"expense_id", expense.ID,
		"amount", expense.Amount,
		"payer_id", expense.PayerID,
		"open_settlements", len(open),
	)
	return &ExpenseResult{Trip: updated, Expense: expense, Settlements: open}, nil
}

// DeleteExpense removes an expense and regenerates the trip's open
// settlements in the same transaction. The actor must be a trip
// participant.
func (s *ExpenseService) DeleteExpense(ctx context.Context, actorID, tripID, expenseID string, expectedVersion int64) (*ExpenseResult, error) {
	trip, participants, err := s.trips.requireParticipant(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(trip, expectedVersion); err != nil {
		return nil, err
	}

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.TripID != tripID {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}

	expenses, err := s.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	remaining := expenses[:0]
	for _, e := range expenses {
		if e.ID != expenseID {
			remaining = append(remaining, e)
		}
	}

	open, err := s.regenerate(ctx, tripID, participants, remaining)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.DeleteExpense(ctx, tripID, expenseID, open, trip.Version)
	if errors.Is(err, storage.ErrVersionConflict) {
		metrics.VersionConflicts.Inc()
		return nil, err
	}
	if err != nil {
		slog.Error("DeleteExpense failed", "trip_id", tripID, "expense_id", expenseID, "error", err)
		return nil, err
	}

	slog.Info("Expense deleted", "trip_id", tripID, "expense_id", expenseID, "open_settlements", len(open))
	return &ExpenseResult{Trip: updated, Settlements: open}, nil
}

// regenerate rebuilds the open settlement set from scratch: balances from
// all expenses and settled history, reduced to minimal transfers. The
// result replaces the previous open set atomically in the store.
func (s *ExpenseService) regenerate(ctx context.Context, tripID string, participants []*models.Participant, expenses []*models.Expense) ([]*models.Settlement, error) {
	history, err := s.store.ListSettlementHistory(ctx, tripID)
	if err != nil {
		return nil, err
	}

	roster := ledgerRoster(participants, expenses, history)

	flat := make([]models.Expense, len(expenses))
	for i, e := range expenses {
		flat[i] = *e
	}
	hist := make([]models.SettlementRecord, len(history))
	for i, r := range history {
		hist[i] = *r
	}

	balances, err := ledger.BuildBalances(roster, flat, hist)
	if err != nil {
		slog.Error("Ledger rejected trip state", "trip_id", tripID, "error", err)
		return nil, err
	}

	transfers, err := ledger.Reduce(ledger.Nets(balances))
	if err != nil {
		slog.Error("Settlement reduction failed", "trip_id", tripID, "error", err)
		return nil, err
	}

	open := make([]*models.Settlement, len(transfers))
	for i, t := range transfers {
		open[i] = &models.Settlement{
			TripID:     tripID,
			DebtorID:   t.DebtorID,
			CreditorID: t.CreditorID,
			Amount:     t.Amount,
			Status:     models.SettlementOpen,
		}
	}
	return open, nil
}

// ledgerRoster is the set of users the ledger must account for: the current
// roster plus anyone referenced by historical expenses or settled payments.
// A removed participant with history still balances out through it.
func ledgerRoster(participants []*models.Participant, expenses []*models.Expense, history []*models.SettlementRecord) []string {
	seen := make(map[string]bool)
	var roster []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			roster = append(roster, id)
		}
	}

	for _, p := range participants {
		add(p.UserID)
	}
	for _, e := range expenses {
		add(e.PayerID)
		for _, id := range e.SplitUserIDs() {
			add(id)
		}
	}
	for _, r := range history {
		add(r.DebtorID)
		add(r.CreditorID)
	}
	return roster
}

// validateExpense rejects malformed expenses before they reach the ledger.
func validateExpense(expense *models.Expense, participants []*models.Participant) error {
	if expense.Name == "" {
		return fmt.Errorf("%w: expense name is required", ErrInvalidInput)
	}
	if !expense.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if len(expense.Splits) == 0 {
		return fmt.Errorf("%w: at least one split participant is required", ErrInvalidInput)
	}
	if expense.SplitMethod != models.SplitEven && expense.SplitMethod != models.SplitExact {
		return fmt.Errorf("%w: unknown split method %q", ErrInvalidInput, expense.SplitMethod)
	}

	members := make(map[string]bool, len(participants))
	for _, p := range participants {
		members[p.UserID] = true
	}
	if !members[expense.PayerID] {
		return fmt.Errorf("%w: payer is not a trip participant", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(expense.Splits))
	total := decimal.Zero
	for _, split := range expense.Splits {
		if !members[split.UserID] {
			return fmt.Errorf("%w: split member %s is not a trip participant", ErrInvalidInput, split.UserID)
		}
		if seen[split.UserID] {
			return fmt.Errorf("%w: duplicate split member %s", ErrInvalidInput, split.UserID)
		}
		seen[split.UserID] = true

		if expense.SplitMethod == models.SplitExact {
			if !split.Share.IsPositive() {
				return fmt.Errorf("%w: share for %s must be positive", ErrInvalidInput, split.UserID)
			}
			total = total.Add(split.Share)
		}
	}
	if expense.SplitMethod == models.SplitExact && !total.Equal(expense.Amount) {
		return fmt.Errorf("%w: shares sum to %s, amount is %s", ErrInvalidInput, total, expense.Amount)
	}

	return nil
}
