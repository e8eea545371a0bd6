package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

const orderIDConstraint = "orders_sheet_order_id_key"

type Repository interface {
	// Append inserts row and reports whether it was new. A row whose
	// submission id was already stored is skipped without error.
	Append(ctx context.Context, row *Row) (bool, error)
	UpdateStatus(ctx context.Context, sheet, orderID, status string) error
	List(ctx context.Context, sheet string) ([]Row, error)
}

type postgresRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewRepository(db *pgxpool.Pool, lockTimeout time.Duration) Repository {
	return &postgresRepository{db: db, lockTimeout: lockTimeout}
}

func (r *postgresRepository) Append(ctx context.Context, row *Row) (bool, error) {
	inserted := false
	err := r.withSheetLock(ctx, row.Sheet, func(tx pgx.Tx) error {
		query := `
			INSERT INTO orders (sheet, order_id, submission_id, delivery_date, delivery_time,
				customer_name, phone, flat, apartment, items, total, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (submission_id) DO NOTHING
			RETURNING id
		`
		err := tx.QueryRow(ctx, query,
			row.Sheet,
			row.OrderID,
			row.SubmissionID,
			row.DeliveryDate,
			row.DeliveryTime,
			row.CustomerName,
			row.Phone,
			row.Flat,
			row.Apartment,
			row.Items,
			row.Total,
			row.Status,
			row.CreatedAt,
		).Scan(&row.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("repository: failed to append order %s: %w", row.OrderID, err)
	}
	return inserted, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, sheet, orderID, status string) error {
	err := r.withSheetLock(ctx, sheet, func(tx pgx.Tx) error {
		query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE sheet = $2 AND order_id = $3`
		tag, err := tx.Exec(ctx, query, status, sheet, orderID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return order.ErrOrderNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("repository: failed to update status of %s: %w", orderID, err)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, sheet string) ([]Row, error) {
	query := `
		SELECT id, sheet, order_id, delivery_date, delivery_time, customer_name, phone,
			flat, apartment, items, total, status, created_at, row_index
		FROM (
			SELECT *, ROW_NUMBER() OVER (ORDER BY id) + 1 AS row_index
			FROM orders
			WHERE sheet = $1
		) numbered
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, sheet)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list orders of %s: %w", sheet, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ID,
			&row.Sheet,
			&row.OrderID,
			&row.DeliveryDate,
			&row.DeliveryTime,
			&row.CustomerName,
			&row.Phone,
			&row.Flat,
			&row.Apartment,
			&row.Items,
			&row.Total,
			&row.Status,
			&row.CreatedAt,
			&row.RowIndex,
		); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed to iterate order rows: %w", err)
	}
	return result, nil
}

// withSheetLock runs fn in a transaction holding the sheet's advisory lock.
// Waiting for the lock is bounded by lockTimeout; a timeout surfaces as
// ErrLockUnavailable and nothing is written.
func (r *postgresRepository) withSheetLock(ctx context.Context, sheet string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Str("sheet", sheet).Msg("repository: panic inside sheet transaction, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("sheet", sheet).Msg("repository: failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("sheet", sheet).Msg("repository: failed to rollback transaction")
			}
			err = mapError(err)
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", mapError(commitErr))
		}
	}()

	if r.lockTimeout > 0 {
		timeout := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
		if _, err = tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}
	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "orders:"+sheet); err != nil {
		return fmt.Errorf("failed to lock sheet %s: %w", sheet, err)
	}

	return fn(tx)
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == orderIDConstraint {
			return fmt.Errorf("%w: %s", order.ErrDuplicateOrderID, pgErr.Detail)
		}
	case pgerrcode.LockNotAvailable:
		return fmt.Errorf("%w: %s", ErrLockUnavailable, pgErr.Message)
	}
	return err
}
