package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tripperhq/tripper/internal/models"
	"github.com/tripperhq/tripper/internal/storage"
)

// TripService handles trip and roster management.
type TripService struct {
	store storage.Store
}

// NewTripService creates a new TripService with the given storage backend.
func NewTripService(store storage.Store) *TripService {
	return &TripService{store: store}
}

// CreateTripInput is the validated payload for CreateTrip.
type CreateTripInput struct {
	Name        string
	Description string
	Currency    string
	StartDate   int64
	EndDate     int64
}

// TripDetails is everything the client needs to render a trip page.
type TripDetails struct {
	Trip         *models.Trip          `json:"trip"`
	Participants []*models.Participant `json:"participants"`
	Expenses     []*models.Expense     `json:"expenses"`
	Settlements  []*models.Settlement  `json:"settlements"`
}

// CreateTrip creates a trip with the actor as admin and first participant.
func (s *TripService) CreateTrip(ctx context.Context, actorID string, input CreateTripInput) (*models.Trip, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: trip name is required", ErrInvalidInput)
	}
	if len(input.Currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidInput)
	}
	if input.EndDate < input.StartDate {
		return nil, fmt.Errorf("%w: trip ends before it starts", ErrInvalidInput)
	}

	trip := &models.Trip{
		Name:        input.Name,
		Description: input.Description,
		Currency:    input.Currency,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatorID:   actorID,
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		slog.Error("CreateTrip failed", "error", err)
		return nil, err
	}

	slog.Info("Trip created", "trip_id", trip.ID, "creator_id", actorID)
	return trip, nil
}

// ListTrips returns the trips the actor participates in.
func (s *TripService) ListTrips(ctx context.Context, actorID string) ([]*models.Trip, error) {
	return s.store.ListTripsByUser(ctx, actorID)
}

// GetTripDetails returns the trip with its roster, expenses, and open
// settlements. The actor must be a participant.
func (s *TripService) GetTripDetails(ctx context.Context, actorID, tripID string) (*TripDetails, error) {
	trip, participants, err := s.requireParticipant(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	settlements, err := s.store.ListOpenSettlements(ctx, tripID)
	if err != nil {
		return nil, err
	}

	return &TripDetails{
		Trip:         trip,
		Participants: participants,
		Expenses:     expenses,
		Settlements:  settlements,
	}, nil
}

// AddParticipant enrolls a user. Only the trip admin may manage the roster.
func (s *TripService) AddParticipant(ctx context.Context, actorID, tripID, userID string, expectedVersion int64) (*models.Trip, error) {
	trip, err := s.requireAdmin(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(trip, expectedVersion); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	updated, err := s.store.AddParticipant(ctx, tripID, userID, trip.Version)
	if err != nil {
		return nil, err
	}

	slog.Info("Participant added", "trip_id", tripID, "user_id", userID)
	return updated, nil
}

// RemoveParticipant removes a user from the roster. Only the trip admin may
// manage the roster; the admin cannot be removed, and neither can anyone
// still involved in an open settlement. The user's historical expenses are
// kept.
func (s *TripService) RemoveParticipant(ctx context.Context, actorID, tripID, userID string, expectedVersion int64) (*models.Trip, error) {
	trip, err := s.requireAdmin(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(trip, expectedVersion); err != nil {
		return nil, err
	}
	if userID == trip.CreatorID {
		return nil, fmt.Errorf("%w: the trip admin cannot be removed", ErrInvalidInput)
	}

	settlements, err := s.store.ListOpenSettlements(ctx, tripID)
	if err != nil {
		return nil, err
	}
	for _, settlement := range settlements {
		if settlement.DebtorID == userID || settlement.CreditorID == userID {
			return nil, fmt.Errorf("%w: participant has open settlements", ErrInvalidInput)
		}
	}

	updated, err := s.store.RemoveParticipant(ctx, tripID, userID, trip.Version)
	if err != nil {
		return nil, err
	}

	slog.Info("Participant removed", "trip_id", tripID, "user_id", userID)
	return updated, nil
}

// requireParticipant loads the trip and roster and verifies the actor is on
// it.
func (s *TripService) requireParticipant(ctx context.Context, actorID, tripID string) (*models.Trip, []*models.Participant, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.store.ListParticipants(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range participants {
		if p.UserID == actorID {
			return trip, participants, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: not a trip participant", ErrPermissionDenied)
}

// requireAdmin loads the trip and verifies the actor created it.
func (s *TripService) requireAdmin(ctx context.Context, actorID, tripID string) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.CreatorID != actorID {
		return nil, fmt.Errorf("%w: only the trip admin may do this", ErrPermissionDenied)
	}
	return trip, nil
}

// checkVersion rejects a mutation early when the client computed against a
// stale trip. Zero means the client did not supply a version; the store's
// compare-and-swap still guards the write either way.
func checkVersion(trip *models.Trip, expectedVersion int64) error {
	if expectedVersion != 0 && expectedVersion != trip.Version {
		return fmt.Errorf("trip %s: %w", trip.ID, storage.ErrVersionConflict)
	}
	return nil
}
