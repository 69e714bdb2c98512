package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripperhq/tripper/internal/models"
	"github.com/tripperhq/tripper/internal/storage"
)

// CreateTrip persists a new trip and enrolls the creator as its first
// participant.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.CreatedAt == 0 {
		trip.CreatedAt = time.Now().Unix()
	}
	trip.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (id, name, description, currency, start_date, end_date, creator_id, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.Name, nullable(trip.Description), trip.Currency,
		trip.StartDate, trip.EndDate, trip.CreatorID, trip.Version, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trip_participants (trip_id, user_id, joined_at) VALUES (?, ?, ?)",
		trip.ID, trip.CreatorID, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enroll creator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTrip retrieves a trip by ID.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip := &models.Trip{}
	var description sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, currency, start_date, end_date, creator_id, version, created_at
		 FROM trips WHERE id = ?`,
		tripID,
	).Scan(&trip.ID, &trip.Name, &description, &trip.Currency,
		&trip.StartDate, &trip.EndDate, &trip.CreatorID, &trip.Version, &trip.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip %s: %w", tripID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	if description.Valid {
		trip.Description = description.String
	}

	return trip, nil
}

// ListTripsByUser retrieves the trips a user participates in, newest first.
func (s *SQLiteStore) ListTripsByUser(ctx context.Context, userID string) ([]*models.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.description, t.currency, t.start_date, t.end_date, t.creator_id, t.version, t.created_at
		 FROM trips t
		 JOIN trip_participants tp ON tp.trip_id = t.id
		 WHERE tp.user_id = ?
		 ORDER BY t.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips by user: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		var description sql.NullString
		if err := rows.Scan(&trip.ID, &trip.Name, &description, &trip.Currency,
			&trip.StartDate, &trip.EndDate, &trip.CreatorID, &trip.Version, &trip.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		if description.Valid {
			trip.Description = description.String
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	return trips, nil
}

// ListParticipants retrieves the trip's roster with display names joined in.
func (s *SQLiteStore) ListParticipants(ctx context.Context, tripID string) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tp.trip_id, tp.user_id, u.display_name, u.avatar_url, tp.joined_at
		 FROM trip_participants tp
		 JOIN users u ON u.id = tp.user_id
		 WHERE tp.trip_id = ?
		 ORDER BY tp.joined_at, tp.user_id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		var avatar sql.NullString
		if err := rows.Scan(&p.TripID, &p.UserID, &p.DisplayName, &avatar, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if avatar.Valid {
			p.AvatarURL = avatar.String
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// AddParticipant enrolls a user in a trip, guarded by the trip version.
func (s *SQLiteStore) AddParticipant(ctx context.Context, tripID, userID string, expectedVersion int64) (*models.Trip, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := bumpTripVersion(ctx, tx, tripID, expectedVersion); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trip_participants (trip_id, user_id, joined_at) VALUES (?, ?, ?)",
		tripID, userID, time.Now().Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("participant %s: %w", userID, storage.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetTrip(ctx, tripID)
}

// RemoveParticipant removes a user from the roster, guarded by the trip
// version. The user's historical expenses are untouched.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, tripID, userID string, expectedVersion int64) (*models.Trip, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := bumpTripVersion(ctx, tx, tripID, expectedVersion); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM trip_participants WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete participant: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("participant %s: %w", userID, storage.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetTrip(ctx, tripID)
}
