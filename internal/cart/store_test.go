package cart

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/andreasstove999/storefront-go/internal/money"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(mock)
}

func TestGetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("computes line and cart totals", func(t *testing.T) {
		mock, store := newMockStore(t)

		rows := pgxmock.NewRows([]string{"id", "session_id", "product_id", "quantity", "name", "unit_price_cents"}).
			AddRow("l1", "s1", "p1", 2, "Wireless Headphones", money.Cents(1000)).
			AddRow("l2", "s1", "p2", 1, "Desk Mat", money.Cents(500))
		mock.ExpectQuery(regexp.QuoteMeta(selectCartSQL)).WithArgs("s1").WillReturnRows(rows)

		c, err := store.GetCart(ctx, "s1")
		if err != nil {
			t.Fatalf("get cart: %v", err)
		}
		if len(c.Lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(c.Lines))
		}
		if c.Lines[0].LineTotal != 2000 {
			t.Fatalf("line total = %d, want 2000", c.Lines[0].LineTotal)
		}
		if c.Total != 2500 {
			t.Fatalf("cart total = %d, want 2500", c.Total)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("expectations: %v", err)
		}
	})

	t.Run("unknown session yields empty cart, not an error", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectQuery(regexp.QuoteMeta(selectCartSQL)).WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "product_id", "quantity", "name", "unit_price_cents"}))

		c, err := store.GetCart(ctx, "nobody")
		if err != nil {
			t.Fatalf("get cart: %v", err)
		}
		if !c.Empty() || c.Total != 0 {
			t.Fatalf("expected empty cart, got %+v", c)
		}
	})
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects quantity below 1", func(t *testing.T) {
		_, store := newMockStore(t)

		for _, qty := range []int{0, -3} {
			if _, err := store.AddItem(ctx, "s1", "p1", qty); !errors.Is(err, ErrInvalidQuantity) {
				t.Fatalf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
			}
		}
	})

	t.Run("returns the post-merge line", func(t *testing.T) {
		mock, store := newMockStore(t)

		// Existing line with quantity 2, adding 3 merges to 5.
		mock.ExpectQuery(regexp.QuoteMeta(upsertLineSQL)).
			WithArgs(pgxmock.AnyArg(), "s1", "p1", 3).
			WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "product_id", "quantity"}).
				AddRow("l1", "s1", "p1", 5))

		ln, err := store.AddItem(ctx, "s1", "p1", 3)
		if err != nil {
			t.Fatalf("add item: %v", err)
		}
		if ln.ID != "l1" || ln.Quantity != 5 {
			t.Fatalf("unexpected line %+v", ln)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("expectations: %v", err)
		}
	})

	t.Run("unknown product maps to ErrProductNotFound", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectQuery(regexp.QuoteMeta(upsertLineSQL)).
			WithArgs(pgxmock.AnyArg(), "s1", "ghost", 1).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		if _, err := store.AddItem(ctx, "s1", "ghost", 1); !errors.Is(err, ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})

	t.Run("serialization failure maps to ErrConflict", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectQuery(regexp.QuoteMeta(upsertLineSQL)).
			WithArgs(pgxmock.AnyArg(), "s1", "p1", 1).
			WillReturnError(&pgconn.PgError{Code: "40001"})

		if _, err := store.AddItem(ctx, "s1", "p1", 1); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces quantity outright", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectQuery("UPDATE cart_lines SET quantity").
			WithArgs("s1", "l1", 7).
			WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "product_id", "quantity"}).
				AddRow("l1", "s1", "p1", 7))

		ln, err := store.SetQuantity(ctx, "s1", "l1", 7)
		if err != nil {
			t.Fatalf("set quantity: %v", err)
		}
		if ln.Quantity != 7 {
			t.Fatalf("quantity = %d, want 7", ln.Quantity)
		}
	})

	t.Run("rejects quantity below 1", func(t *testing.T) {
		_, store := newMockStore(t)

		if _, err := store.SetQuantity(ctx, "s1", "l1", 0); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("missing line maps to ErrLineNotFound", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectQuery("UPDATE cart_lines SET quantity").
			WithArgs("s1", "ghost", 2).
			WillReturnError(pgx.ErrNoRows)

		if _, err := store.SetQuantity(ctx, "s1", "ghost", 2); !errors.Is(err, ErrLineNotFound) {
			t.Fatalf("expected ErrLineNotFound, got %v", err)
		}
	})

	t.Run("another session's line is not visible", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectQuery("UPDATE cart_lines SET quantity").
			WithArgs("other-session", "l1", 2).
			WillReturnError(pgx.ErrNoRows)

		if _, err := store.SetQuantity(ctx, "other-session", "l1", 2); !errors.Is(err, ErrLineNotFound) {
			t.Fatalf("expected ErrLineNotFound, got %v", err)
		}
	})
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the line", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectExec("DELETE FROM cart_lines").
			WithArgs("s1", "l1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		if err := store.RemoveItem(ctx, "s1", "l1"); err != nil {
			t.Fatalf("remove item: %v", err)
		}
	})

	t.Run("second removal reports ErrLineNotFound", func(t *testing.T) {
		mock, store := newMockStore(t)

		mock.ExpectExec("DELETE FROM cart_lines").
			WithArgs("s1", "l1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		if err := store.RemoveItem(ctx, "s1", "l1"); !errors.Is(err, ErrLineNotFound) {
			t.Fatalf("expected ErrLineNotFound, got %v", err)
		}
	})
}
