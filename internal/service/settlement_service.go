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

// SettlementService handles the settlement lifecycle: listing open
// settlements, confirming payments, and exposing balances and history.
type SettlementService struct {
	store storage.Store
	trips *TripService
}

// NewSettlementService creates a new SettlementService with the given
// storage backend.
func NewSettlementService(store storage.Store) *SettlementService {
	return &SettlementService{store: store, trips: NewTripService(store)}
}

// Aggregates are the actor's headline numbers, recomputed from the current
// open settlement list on every read (never from a stored snapshot).
type Aggregates struct {
	TotalPaid decimal.Decimal `json:"totalPaid"`
	OwedToMe  decimal.Decimal `json:"owedToMe"`
	IOwe      decimal.Decimal `json:"iOwe"`
}

// MemberBalance is one participant's position in the trip. DisplayName is
// resolved from the user record; it stays empty if the account is gone.
type MemberBalance struct {
	UserID      string          `json:"userId"`
	DisplayName string          `json:"displayName,omitempty"`
	Net         decimal.Decimal `json:"net"`
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	TotalShare  decimal.Decimal `json:"totalShare"`
}

// BalanceSummary is returned by Balances.
type BalanceSummary struct {
	Balances   []MemberBalance `json:"balances"`
	Aggregates Aggregates      `json:"aggregates"`
}

// SettleResult is returned by Settle: the affected settlement (settled or
// shrunk), the appended history record, and the actor's fresh aggregates.
type SettleResult struct {
	Trip       *models.Trip             `json:"trip"`
	Settlement *models.Settlement       `json:"settlement"`
	Record     *models.SettlementRecord `json:"record"`
	Aggregates Aggregates               `json:"aggregates"`
}

// ListOpen returns the trip's open settlements. The actor must be a
// participant.
func (s *SettlementService) ListOpen(ctx context.Context, actorID, tripID string) ([]*models.Settlement, error) {
	if _, _, err := s.trips.requireParticipant(ctx, actorID, tripID); err != nil {
		return nil, err
	}
	return s.store.ListOpenSettlements(ctx, tripID)
}

// History returns the trip's append-only settlement log. The actor must be
// a participant.
func (s *SettlementService) History(ctx context.Context, actorID, tripID string) ([]*models.SettlementRecord, error) {
	if _, _, err := s.trips.requireParticipant(ctx, actorID, tripID); err != nil {
		return nil, err
	}
	return s.store.ListSettlementHistory(ctx, tripID)
}

// Balances recomputes every participant's net position from the trip's
// expenses and settlement history, plus the actor's aggregates from the
// open settlement list.
func (s *SettlementService) Balances(ctx context.Context, actorID, tripID string) (*BalanceSummary, error) {
	_, participants, err := s.trips.requireParticipant(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
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
		slog.Error("Balance computation failed", "trip_id", tripID, "error", err)
		return nil, err
	}

	// The roster can reference removed participants, so names come from the
	// user records rather than the trip roster.
	users, err := s.store.GetUsersByIDs(ctx, roster)
	if err != nil {
		return nil, err
	}

	summary := &BalanceSummary{}
	for _, userID := range roster {
		bal := balances[userID]
		member := MemberBalance{
			UserID:     bal.UserID,
			Net:        bal.Net,
			TotalPaid:  bal.TotalPaid,
			TotalShare: bal.TotalShare,
		}
		if user, ok := users[userID]; ok {
			member.DisplayName = user.DisplayName
		}
		summary.Balances = append(summary.Balances, member)
	}

	open, err := s.store.ListOpenSettlements(ctx, tripID)
	if err != nil {
		return nil, err
	}
	summary.Aggregates = aggregatesFor(actorID, flatPaid(expenses, actorID), open)

	return summary, nil
}

// Settle confirms a payment against an open settlement. The actor must be
// the settlement's debtor, or the trip admin reconciling a cash payment.
// amountToSettle must be positive and at most the outstanding amount; the
// full amount closes the settlement, less leaves it open with the
// remainder. A settlement that already went through is rejected unchanged.
func (s *SettlementService) Settle(ctx context.Context, actorID, tripID, settlementID string, amountToSettle decimal.Decimal, expectedVersion int64) (*SettleResult, error) {
	trip, _, err := s.trips.requireParticipant(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(trip, expectedVersion); err != nil {
		return nil, err
	}

	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.TripID != tripID {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if actorID != settlement.DebtorID && actorID != trip.CreatorID {
		return nil, fmt.Errorf("%w: only the debtor or the trip admin may settle", ErrPermissionDenied)
	}
	if !amountToSettle.IsPositive() {
		return nil, fmt.Errorf("%w: amount to settle must be positive", ErrInvalidInput)
	}
	if amountToSettle.GreaterThan(settlement.Amount) {
		return nil, fmt.Errorf("%w: amount to settle exceeds the outstanding %s", ErrInvalidInput, settlement.Amount)
	}

	remaining := settlement.Amount.Sub(amountToSettle)
	record := &models.SettlementRecord{
		DebtorID:   settlement.DebtorID,
		CreditorID: settlement.CreditorID,
		Amount:     amountToSettle,
		SettledBy:  actorID,
	}

	updated, err := s.store.ApplySettlement(ctx, tripID, settlementID, remaining, record, trip.Version)
	if errors.Is(err, storage.ErrVersionConflict) {
		metrics.VersionConflicts.Inc()
		return nil, err
	}
	if err != nil {
		// Nothing was written; the settlement is still open and the
		// operation can be retried.
		slog.Warn("Settle failed", "trip_id", tripID, "settlement_id", settlementID, "error", err)
		return nil, err
	}

	metrics.SettlementsSettled.Inc()
	slog.Info("Settlement applied",
		"trip_id", tripID,
		"settlement_id", settlementID,
		"amount", amountToSettle,
		"remaining", remaining,
		"settled_by", actorID,
	)

	result := &SettleResult{Trip: updated, Record: record}
	settlement.Amount = remaining
	if remaining.IsPositive() {
		result.Settlement = settlement
	} else {
		settlement.Status = models.SettlementSettled
		settlement.Amount = decimal.Zero
		result.Settlement = settlement
	}

	open, err := s.store.ListOpenSettlements(ctx, tripID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	result.Aggregates = aggregatesFor(actorID, flatPaid(expenses, actorID), open)

	return result, nil
}

// aggregatesFor derives the actor's headline numbers from the open
// settlement list.
func aggregatesFor(actorID string, totalPaid decimal.Decimal, open []*models.Settlement) Aggregates {
	agg := Aggregates{TotalPaid: totalPaid, OwedToMe: decimal.Zero, IOwe: decimal.Zero}
	for _, settlement := range open {
		if settlement.CreditorID == actorID {
			agg.OwedToMe = agg.OwedToMe.Add(settlement.Amount)
		}
		if settlement.DebtorID == actorID {
			agg.IOwe = agg.IOwe.Add(settlement.Amount)
		}
	}
	return agg
}

// flatPaid sums the amounts the actor paid as the responsible party.
func flatPaid(expenses []*models.Expense, actorID string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.PayerID == actorID {
			total = total.Add(e.Amount)
		}
	}
	return total
}
