package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripperhq/tripper/internal/models"
	"github.com/tripperhq/tripper/internal/storage"
)

// replaceOpenSettlements swaps the trip's open settlement set inside tx.
// Open settlements are derived state; every expense mutation regenerates
// them wholesale rather than patching rows.
func replaceOpenSettlements(ctx context.Context, tx *sql.Tx, tripID string, open []*models.Settlement) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM settlements WHERE trip_id = ?", tripID); err != nil {
		return fmt.Errorf("failed to clear open settlements: %w", err)
	}

	now := time.Now().Unix()
	for _, settlement := range open {
		if settlement.ID == "" {
			settlement.ID = uuid.New().String()
		}
		if settlement.CreatedAt == 0 {
			settlement.CreatedAt = now
		}
		settlement.TripID = tripID
		settlement.Status = models.SettlementOpen

		_, err := tx.ExecContext(ctx,
			`INSERT INTO settlements (id, trip_id, debtor_id, creditor_id, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			settlement.ID, settlement.TripID, settlement.DebtorID, settlement.CreditorID,
			settlement.Amount.String(), settlement.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
	}

	return nil
}

// GetSettlement retrieves an open settlement by ID. A settlement that only
// exists in history yields ErrAlreadySettled so callers can distinguish a
// double-settle from a bad ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var amount string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, debtor_id, creditor_id, amount, created_at
		 FROM settlements WHERE id = ?`,
		settlementID,
	).Scan(&settlement.ID, &settlement.TripID, &settlement.DebtorID,
		&settlement.CreditorID, &amount, &settlement.CreatedAt)
	if err == sql.ErrNoRows {
		var one int
		histErr := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM settlement_history WHERE settlement_id = ? LIMIT 1",
			settlementID,
		).Scan(&one)
		if histErr == nil {
			return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrAlreadySettled)
		}
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	parsed, err := scanDecimal(amount)
	if err != nil {
		return nil, err
	}
	settlement.Amount = parsed
	settlement.Status = models.SettlementOpen

	return settlement, nil
}

// ListOpenSettlements retrieves the trip's open settlements in generation
// order.
func (s *SQLiteStore) ListOpenSettlements(ctx context.Context, tripID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, debtor_id, creditor_id, amount, created_at
		 FROM settlements WHERE trip_id = ? ORDER BY created_at, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var amount string
		if err := rows.Scan(&settlement.ID, &settlement.TripID, &settlement.DebtorID,
			&settlement.CreditorID, &amount, &settlement.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		parsed, err := scanDecimal(amount)
		if err != nil {
			return nil, err
		}
		settlement.Amount = parsed
		settlement.Status = models.SettlementOpen
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// ApplySettlement records a confirmed payment: it appends the history
// record and shrinks or removes the open settlement, atomically and guarded
// by the trip version. The settlement row is re-read inside the transaction
// so a concurrent settle that already consumed it is detected even after
// the caller's pre-checks passed.
func (s *SQLiteStore) ApplySettlement(ctx context.Context, tripID, settlementID string, remaining decimal.Decimal, record *models.SettlementRecord, expectedVersion int64) (*models.Trip, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.SettledAt == 0 {
		record.SettledAt = time.Now().Unix()
	}
	record.TripID = tripID
	record.SettlementID = settlementID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := bumpTripVersion(ctx, tx, tripID, expectedVersion); err != nil {
		return nil, err
	}

	var one int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM settlements WHERE id = ? AND trip_id = ?",
		settlementID, tripID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		err = tx.QueryRowContext(ctx,
			"SELECT 1 FROM settlement_history WHERE settlement_id = ? LIMIT 1",
			settlementID,
		).Scan(&one)
		if err == nil {
			return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrAlreadySettled)
		}
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check settlement: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlement_history (id, trip_id, settlement_id, debtor_id, creditor_id, amount, settled_by, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.TripID, record.SettlementID, record.DebtorID,
		record.CreditorID, record.Amount.String(), record.SettledBy, record.SettledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert settlement record: %w", err)
	}

	if remaining.IsPositive() {
		_, err = tx.ExecContext(ctx,
			"UPDATE settlements SET amount = ? WHERE id = ?",
			remaining.String(), settlementID,
		)
	} else {
		_, err = tx.ExecContext(ctx, "DELETE FROM settlements WHERE id = ?", settlementID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply settlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetTrip(ctx, tripID)
}

// ListSettlementHistory retrieves the trip's append-only settlement log,
// newest first.
func (s *SQLiteStore) ListSettlementHistory(ctx context.Context, tripID string) ([]*models.SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, settlement_id, debtor_id, creditor_id, amount, settled_by, settled_at
		 FROM settlement_history WHERE trip_id = ? ORDER BY settled_at DESC, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement history: %w", err)
	}
	defer rows.Close()

	var records []*models.SettlementRecord
	for rows.Next() {
		record := &models.SettlementRecord{}
		var amount string
		if err := rows.Scan(&record.ID, &record.TripID, &record.SettlementID,
			&record.DebtorID, &record.CreditorID, &amount,
			&record.SettledBy, &record.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement record: %w", err)
		}
		parsed, err := scanDecimal(amount)
		if err != nil {
			return nil, err
		}
		record.Amount = parsed
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement records: %w", err)
	}

	return records, nil
}
