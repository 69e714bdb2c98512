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

// CreateExpense inserts the expense and replaces the trip's open settlements
// with the regenerated set, all in one version-guarded transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, open []*models.Settlement, expectedVersion int64) (*models.Trip, error) {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := bumpTripVersion(ctx, tx, expense.TripID, expectedVersion); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, trip_id, name, amount, payer_id, split_method, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.TripID, expense.Name, expense.Amount.String(),
		expense.PayerID, string(expense.SplitMethod), expense.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}

	for _, split := range expense.Splits {
		var share interface{}
		if expense.SplitMethod == models.SplitExact {
			share = split.Share.String()
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id, share) VALUES (?, ?, ?)",
			expense.ID, split.UserID, share,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert expense split: %w", err)
		}
	}

	if err := replaceOpenSettlements(ctx, tx, expense.TripID, open); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetTrip(ctx, expense.TripID)
}

// DeleteExpense removes the expense and replaces the trip's open settlements
// with the regenerated set, all in one version-guarded transaction.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, tripID, expenseID string, open []*models.Settlement, expectedVersion int64) (*models.Trip, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := bumpTripVersion(ctx, tx, tripID, expectedVersion); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND trip_id = ?",
		expenseID, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}

	if err := replaceOpenSettlements(ctx, tx, tripID, open); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetTrip(ctx, tripID)
}

// GetExpense retrieves an expense with its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpenseRow(s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, name, amount, payer_id, split_method, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := s.loadSplits(ctx, expense); err != nil {
		return nil, err
	}

	return expense, nil
}

// ListExpensesByTrip retrieves all expenses for a trip in creation order.
func (s *SQLiteStore) ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, name, amount, payer_id, split_method, created_at
		 FROM expenses WHERE trip_id = ? ORDER BY created_at, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpenseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		if err := s.loadSplits(ctx, expense); err != nil {
			return nil, err
		}
	}

	return expenses, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpenseRow(row rowScanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount, method string
	if err := row.Scan(&expense.ID, &expense.TripID, &expense.Name, &amount,
		&expense.PayerID, &method, &expense.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := scanDecimal(amount)
	if err != nil {
		return nil, err
	}
	expense.Amount = parsed
	expense.SplitMethod = models.SplitMethod(method)

	return expense, nil
}

func (s *SQLiteStore) loadSplits(ctx context.Context, expense *models.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, share FROM expense_splits WHERE expense_id = ? ORDER BY user_id",
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.ExpenseSplit
		var share sql.NullString
		if err := rows.Scan(&split.UserID, &share); err != nil {
			return fmt.Errorf("failed to scan expense split: %w", err)
		}
		if share.Valid {
			parsed, err := scanDecimal(share.String)
			if err != nil {
				return err
			}
			split.Share = parsed
		} else {
			split.Share = decimal.Zero
		}
		expense.Splits = append(expense.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense splits: %w", err)
	}

	return nil
}
