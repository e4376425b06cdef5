package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/storefront-go/internal/checkout"
)

const (
	OrderPlacedEventName    = "OrderPlaced"
	OrderPlacedEventVersion = 1
	StorefrontProducer      = "storefront"
)

// EventEnvelope wraps an event payload with the metadata consumers need
// for ordering and tracing. Sequence is monotonic per partition key.
type EventEnvelope struct {
	EventName    string             `json:"eventName"`
	EventVersion int                `json:"eventVersion"`
	EventID      string             `json:"eventId"`
	Producer     string             `json:"producer"`
	PartitionKey string             `json:"partitionKey"`
	Sequence     int64              `json:"sequence"`
	OccurredAt   time.Time          `json:"occurredAt"`
	Payload      OrderPlacedPayload `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID       string            `json:"orderId"`
	SessionID     string            `json:"sessionId"`
	CustomerEmail string            `json:"customerEmail"`
	TotalCents    int64             `json:"totalCents"`
	Items         []OrderPlacedItem `json:"items"`
}

type OrderPlacedItem struct {
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
}

type EnvelopeOptions struct {
	PartitionKey string
	Sequence     int64
	EventID      string
	OccurredAt   time.Time
}

// BuildOrderPlacedEvent wraps a committed order in a versioned envelope.
// The partition key is the session, so per-session consumers see orders
// in sequence.
func BuildOrderPlacedEvent(o *checkout.Order, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payload := OrderPlacedPayload{
		OrderID:       o.ID,
		SessionID:     o.SessionID,
		CustomerEmail: o.CustomerEmail,
		TotalCents:    int64(o.Total),
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			UnitPriceCents: int64(it.UnitPrice),
			Quantity:       it.Quantity,
		})
	}

	return EventEnvelope{
		EventName:    OrderPlacedEventName,
		EventVersion: OrderPlacedEventVersion,
		EventID:      eventID,
		Producer:     StorefrontProducer,
		PartitionKey: opts.PartitionKey,
		Sequence:     opts.Sequence,
		OccurredAt:   occurredAt,
		Payload:      payload,
	}
}
