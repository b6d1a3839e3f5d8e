package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopping-cart/model"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	selectCart          = `SELECT id, total_price, last_interaction_at, abandoned_at FROM carts WHERE id = $1`
	selectCartForUpdate = selectCart + ` FOR UPDATE`
	selectCartItems     = `
		SELECT p.id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`
	upsertCartItem = `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity`
	deleteCartItem  = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`
	updateCartTotal = `UPDATE carts SET total_price = $1, last_interaction_at = $2 WHERE id = $3`
)

// PostgresStore is a Store backed by Postgres.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) CreateProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO products (name, price) VALUES ($1, $2) RETURNING id`,
		name, price,
	).Scan(&id)
	return id, err
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, price FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrProductNotFound
	}
	return p, err
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, price FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateCart(ctx context.Context, now time.Time) (model.Cart, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO carts (total_price, last_interaction_at) VALUES (0, $1) RETURNING id`, now,
	).Scan(&id)
	if err != nil {
		return model.Cart{}, err
	}
	return model.Cart{ID: id, TotalPrice: decimal.Zero, LastInteractionAt: now}, nil
}

func (s *PostgresStore) GetCart(ctx context.Context, id int64) (model.Cart, error) {
	return loadCart(ctx, s.DB, selectCart, id)
}

// UpdateCart locks the cart row, hands the loaded cart to fn and writes the
// returned item change together with the cart's total and interaction time
// in a single transaction.
func (s *PostgresStore) UpdateCart(ctx context.Context, id int64, fn MutateFunc) (model.Cart, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Cart{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cart, err := loadCart(ctx, tx, selectCartForUpdate, id)
	if err != nil {
		return model.Cart{}, err
	}
	if cart.IsAbandoned() {
		return model.Cart{}, ErrCartAbandoned
	}

	change, err := fn(&cart)
	if err != nil {
		return model.Cart{}, err
	}

	switch change.Op {
	case model.ItemNone:
		return cart, nil
	case model.ItemUpsert:
		_, err = tx.ExecContext(ctx, upsertCartItem, id, change.ProductID, change.Quantity)
	case model.ItemDelete:
		_, err = tx.ExecContext(ctx, deleteCartItem, id, change.ProductID)
	default:
		err = fmt.Errorf("unknown item op %d", change.Op)
	}
	if err != nil {
		return model.Cart{}, err
	}

	if _, err := tx.ExecContext(ctx, updateCartTotal, cart.TotalPrice, cart.LastInteractionAt, id); err != nil {
		return model.Cart{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Cart{}, err
	}
	committed = true
	return cart, nil
}

func loadCart(ctx context.Context, q queryer, query string, id int64) (model.Cart, error) {
	var (
		c           model.Cart
		abandonedAt sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.TotalPrice, &c.LastInteractionAt, &abandonedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cart{}, ErrCartNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	if abandonedAt.Valid {
		c.State = model.CartAbandoned
		c.AbandonedAt = abandonedAt.Time
	}

	rows, err := q.QueryContext(ctx, selectCartItems, id)
	if err != nil {
		return model.Cart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.Product.ID, &it.Product.Name, &it.Product.Price, &it.Quantity); err != nil {
			return model.Cart{}, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}
