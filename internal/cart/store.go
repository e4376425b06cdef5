package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrConflict signals write contention the store detected and refused.
	// Callers are expected to retry.
	ErrConflict = errors.New("concurrent cart write conflict")
)

// DB matches the methods from *pgxpool.Pool that the store uses, so the
// database can be mocked in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Store interface {
	GetCart(ctx context.Context, sessionID string) (*Cart, error)
	AddItem(ctx context.Context, sessionID, productID string, quantity int) (Line, error)
	SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (Line, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) error
}

// TransactionalStore exposes the tx-scoped operations the checkout
// processor runs inside its unit of work.
type TransactionalStore interface {
	Store
	LinesForUpdate(ctx context.Context, tx pgx.Tx, sessionID string) ([]ViewLine, error)
	ClearWithTx(ctx context.Context, tx pgx.Tx, sessionID string) error
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectCartSQL = `
SELECT l.id, l.session_id, l.product_id, l.quantity, p.name, p.unit_price_cents
FROM cart_lines l
JOIN products p ON p.id = l.product_id
WHERE l.session_id = $1
ORDER BY l.created_at, l.id`

// GetCart returns the session's lines joined with product data plus the
// computed total. An unknown session yields an empty cart, not an error.
func (s *PostgresStore) GetCart(ctx context.Context, sessionID string) (*Cart, error) {
	rows, err := s.db.Query(ctx, selectCartSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	c := &Cart{SessionID: sessionID}
	for rows.Next() {
		var vl ViewLine
		if err := rows.Scan(&vl.ID, &vl.SessionID, &vl.ProductID, &vl.Quantity, &vl.ProductName, &vl.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		vl.LineTotal = vl.UnitPrice.Times(vl.Quantity)
		c.Total += vl.LineTotal
		c.Lines = append(c.Lines, vl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return c, nil
}

const upsertLineSQL = `
INSERT INTO cart_lines (id, session_id, product_id, quantity, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (session_id, product_id) DO UPDATE
SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
RETURNING id, session_id, product_id, quantity`

// AddItem merges the quantity into the session's line for the product,
// creating the line if none exists. The upsert makes the check-and-write
// atomic per (session_id, product_id) key: concurrent adds cannot create
// duplicate lines or lose increments.
func (s *PostgresStore) AddItem(ctx context.Context, sessionID, productID string, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}

	var ln Line
	row := s.db.QueryRow(ctx, upsertLineSQL, uuid.NewString(), sessionID, productID, quantity)
	if err := row.Scan(&ln.ID, &ln.SessionID, &ln.ProductID, &ln.Quantity); err != nil {
		return Line{}, mapPgError(fmt.Errorf("upsert cart line: %w", err))
	}

	return ln, nil
}

// SetQuantity replaces the line's quantity outright, unlike AddItem which
// accumulates.
func (s *PostgresStore) SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}

	var ln Line
	row := s.db.QueryRow(ctx, `
UPDATE cart_lines SET quantity = $3, updated_at = NOW()
WHERE id = $2 AND session_id = $1
RETURNING id, session_id, product_id, quantity`,
		sessionID, lineID, quantity)
	if err := row.Scan(&ln.ID, &ln.SessionID, &ln.ProductID, &ln.Quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, ErrLineNotFound
		}
		return Line{}, mapPgError(fmt.Errorf("update cart line: %w", err))
	}

	return ln, nil
}

func (s *PostgresStore) RemoveItem(ctx context.Context, sessionID, lineID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM cart_lines WHERE id = $2 AND session_id = $1`, sessionID, lineID)
	if err != nil {
		return mapPgError(fmt.Errorf("delete cart line: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// LinesForUpdate reads the session's priced lines with row locks held for
// the remainder of tx, so checkout snapshots a stable cart.
func (s *PostgresStore) LinesForUpdate(ctx context.Context, tx pgx.Tx, sessionID string) ([]ViewLine, error) {
	rows, err := tx.Query(ctx, selectCartSQL+` FOR UPDATE OF l`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lock cart lines: %w", err)
	}
	defer rows.Close()

	var lines []ViewLine
	for rows.Next() {
		var vl ViewLine
		if err := rows.Scan(&vl.ID, &vl.SessionID, &vl.ProductID, &vl.Quantity, &vl.ProductName, &vl.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		vl.LineTotal = vl.UnitPrice.Times(vl.Quantity)
		lines = append(lines, vl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return lines, nil
}

func (s *PostgresStore) ClearWithTx(ctx context.Context, tx pgx.Tx, sessionID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// mapPgError translates Postgres error codes into the store's sentinels:
// 23503 foreign key violation (unknown product), 40001/40P01
// serialization failure or deadlock (retryable contention).
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return ErrProductNotFound
		case "40001", "40P01":
			return ErrConflict
		}
	}
	return err
}
