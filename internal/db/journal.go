// Package db persists the order journal in postgres. Signal history is
// not persisted; only orders the executor actually submitted are.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// OrderRecord is one journaled order with the strategy context it was
// submitted under.
type OrderRecord struct {
	ID           int64
	OrderID      string
	StrategyID   int64
	StrategyName string
	Token        string
	Symbol       string
	Side         string
	Quantity     float64
	Price        float64
	FilledQty    float64
	AvgPrice     float64
	Status       string
	Owner        string
	Confidence   float64
	Reason       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Journal is the postgres-backed order journal.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to postgres and verifies the connection.
func Open(connStr string, maxOpen, maxIdle int, log zerolog.Logger) (*Journal, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return NewJournal(conn, log), nil
}

// NewJournal wraps an existing connection.
func NewJournal(conn *sql.DB, log zerolog.Logger) *Journal {
	return &Journal{db: conn, log: log.With().Str("component", "journal").Logger()}
}

func (j *Journal) Close() error { return j.db.Close() }

// Init creates the orders table if it does not exist.
func (j *Journal) Init(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		strategy_id BIGINT NOT NULL,
		strategy_name TEXT NOT NULL,
		token TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		filled_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		owner TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_token ON orders (token);
	CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at);`)
	if err != nil {
		return fmt.Errorf("creating orders schema: %w", err)
	}
	return nil
}

// InsertOrder journals a freshly submitted order and returns its row id.
func (j *Journal) InsertOrder(ctx context.Context, rec OrderRecord) (int64, error) {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	var id int64
	err := j.db.QueryRowContext(ctx, `
	INSERT INTO orders (order_id, strategy_id, strategy_name, token, symbol, side,
		quantity, price, filled_qty, avg_price, status, owner, confidence, reason,
		created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	RETURNING id`,
		rec.OrderID, rec.StrategyID, rec.StrategyName, rec.Token, rec.Symbol, rec.Side,
		rec.Quantity, rec.Price, rec.FilledQty, rec.AvgPrice, rec.Status, rec.Owner,
		rec.Confidence, rec.Reason, rec.CreatedAt, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting order %s: %w", rec.OrderID, err)
	}
	return id, nil
}

// UpdateOrderStatus refreshes the venue-reported status and fills.
func (j *Journal) UpdateOrderStatus(ctx context.Context, orderID, status string, filledQty, avgPrice float64) error {
	res, err := j.db.ExecContext(ctx, `
	UPDATE orders SET status=$2, filled_qty=$3, avg_price=$4, updated_at=$5
	WHERE order_id=$1`,
		orderID, status, filledQty, avgPrice, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating order %s: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating order %s: %w", orderID, err)
	}
	if n == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}
	return nil
}

// ListOrders returns the most recent orders, optionally filtered by token.
// A non-positive limit falls back to 100.
func (j *Journal) ListOrders(ctx context.Context, token string, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
	SELECT id, order_id, strategy_id, strategy_name, token, symbol, side,
		quantity, price, filled_qty, avg_price, status, owner, confidence, reason,
		created_at, updated_at
	FROM orders`
	args := []any{}
	if token != "" {
		query += " WHERE token=$1"
		args = append(args, token)
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var r OrderRecord
		if err := rows.Scan(&r.ID, &r.OrderID, &r.StrategyID, &r.StrategyName, &r.Token,
			&r.Symbol, &r.Side, &r.Quantity, &r.Price, &r.FilledQty, &r.AvgPrice,
			&r.Status, &r.Owner, &r.Confidence, &r.Reason, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return out, nil
}

// RealizedPnL aggregates filled order flows per token: sell proceeds minus
// buy cost.
func (j *Journal) RealizedPnL(ctx context.Context) (map[string]float64, error) {
	rows, err := j.db.QueryContext(ctx, `
	SELECT token,
		SUM(CASE WHEN side='sell' THEN filled_qty*avg_price ELSE -filled_qty*avg_price END)
	FROM orders
	WHERE status='FILLED'
	GROUP BY token`)
	if err != nil {
		return nil, fmt.Errorf("aggregating pnl: %w", err)
	}
	defer rows.Close()

	pnl := make(map[string]float64)
	for rows.Next() {
		var token string
		var v float64
		if err := rows.Scan(&token, &v); err != nil {
			return nil, fmt.Errorf("scanning pnl row: %w", err)
		}
		pnl[token] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregating pnl: %w", err)
	}
	return pnl, nil
}
