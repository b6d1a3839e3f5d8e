package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ListIdleCarts returns active carts whose last interaction is before the cutoff.
func (s *PostgresStore) ListIdleCarts(ctx context.Context, before time.Time) ([]int64, error) {
	return s.listIDs(ctx,
		`SELECT id FROM carts WHERE abandoned_at IS NULL AND last_interaction_at < $1 ORDER BY id`, before)
}

// ListReapableCarts returns carts abandoned before the cutoff.
func (s *PostgresStore) ListReapableCarts(ctx context.Context, before time.Time) ([]int64, error) {
	return s.listIDs(ctx,
		`SELECT id FROM carts WHERE abandoned_at IS NOT NULL AND abandoned_at < $1 ORDER BY id`, before)
}

// MarkAbandoned stamps abandoned_at on an active cart. It reports false when
// the cart is gone or was already abandoned; an existing stamp is never overwritten.
func (s *PostgresStore) MarkAbandoned(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE carts SET abandoned_at = $1 WHERE id = $2 AND abandoned_at IS NULL`, at, id)
	if err != nil {
		return false, err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return ra > 0, nil
}

// DeleteAbandonedCart removes a cart and its items if it is still abandoned
// before the cutoff when its row lock is taken.
func (s *PostgresStore) DeleteAbandonedCart(ctx context.Context, id int64, before time.Time) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var abandonedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `SELECT abandoned_at FROM carts WHERE id = $1 FOR UPDATE`, id).Scan(&abandonedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !abandonedAt.Valid || !abandonedAt.Time.Before(before) {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, id); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

func (s *PostgresStore) listIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
