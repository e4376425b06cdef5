package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/storefront-go/internal/cart"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// ValidationError names the customer field that failed checkout
// validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// local-part@domain with at least one dot in the domain
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// TxBeginner matches *pgxpool.Pool's transaction entry point.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// EventPublisher announces a committed order. Publishing sits outside the
// checkout transaction; a failure never unwinds the order.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, o *Order) error
}

// Processor converts a session's cart into a persisted order. Order
// creation and cart clearing share one transaction, so a crash can never
// leave an order behind with its cart intact, or an emptied cart with no
// order.
type Processor struct {
	db        TxBeginner
	carts     cart.TransactionalStore
	orders    OrderRepository
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
}

func NewProcessor(db TxBeginner, carts cart.TransactionalStore, orders OrderRepository, publisher EventPublisher, logger *log.Logger) *Processor {
	return &Processor{
		db:        db,
		carts:     carts,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *Processor) Checkout(ctx context.Context, sessionID, customerName, customerEmail string) (*Order, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines, err := p.carts.LinesForUpdate(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	if err := validateCustomer(customerName, customerEmail); err != nil {
		return nil, err
	}

	o := &Order{
		SessionID:     sessionID,
		CustomerName:  strings.TrimSpace(customerName),
		CustomerEmail: customerEmail,
		CreatedAt:     p.now().UTC(),
	}
	for _, ln := range lines {
		o.Items = append(o.Items, OrderItem{
			ProductID:   ln.ProductID,
			ProductName: ln.ProductName,
			UnitPrice:   ln.UnitPrice,
			Quantity:    ln.Quantity,
		})
		o.Total += ln.LineTotal
	}

	if err := p.orders.CreateWithTx(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := p.carts.ClearWithTx(ctx, tx, sessionID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	if p.publisher != nil {
		// The order is durable at this point; a lost event is recoverable,
		// a lost order is not.
		if err := p.publisher.PublishOrderPlaced(ctx, o); err != nil {
			p.logger.Printf("publish OrderPlaced for order %s: %v", o.ID, err)
		}
	}

	p.logger.Printf("order %s created for session %s, total %s", o.ID, sessionID, o.Total)
	return o, nil
}

func (p *Processor) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return p.orders.GetByID(ctx, orderID)
}

func (p *Processor) ListOrdersBySession(ctx context.Context, sessionID string) ([]Order, error) {
	return p.orders.ListBySession(ctx, sessionID)
}

func validateCustomer(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "customerName", Reason: "must not be blank"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "customerEmail", Reason: "must be a valid email address"}
	}
	return nil
}
