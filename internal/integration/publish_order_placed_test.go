package integration

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/storefront-go/internal/cart"
	"github.com/andreasstove999/storefront-go/internal/checkout"
	"github.com/andreasstove999/storefront-go/internal/events"
	"github.com/andreasstove999/storefront-go/internal/testutil"
)

func TestCheckoutPublishesOrderPlaced(t *testing.T) {
	pool, _ := testutil.StartPostgres(t)
	conn := testutil.StartRabbitMQ(t)

	publisher, err := events.NewRabbitPublisher(conn, events.NewSequenceRepository(pool))
	if err != nil {
		t.Fatalf("create publisher: %v", err)
	}
	t.Cleanup(func() { _ = publisher.Close() })

	deliveries := bindOrderPlacedQueue(t, conn)

	carts := cart.NewPostgresStore(pool)
	orders := checkout.NewPostgresOrderRepository(pool)
	logger := log.New(io.Discard, "", 0)
	processor := checkout.NewProcessor(pool, carts, orders, publisher, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessionID := uuid.NewString()
	if _, err := carts.AddItem(ctx, sessionID, "mechanical-keyboard", 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	placed, err := processor.Checkout(ctx, sessionID, "Ada Lovelace", "ada@example.com")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	env := receiveEnvelope(t, deliveries)
	if env.EventName != events.OrderPlacedEventName {
		t.Fatalf("expected event %s, got %s", events.OrderPlacedEventName, env.EventName)
	}
	if env.EventVersion != events.OrderPlacedEventVersion {
		t.Fatalf("expected version %d, got %d", events.OrderPlacedEventVersion, env.EventVersion)
	}
	if env.PartitionKey != sessionID {
		t.Fatalf("expected partition key %s, got %s", sessionID, env.PartitionKey)
	}
	if env.Sequence != 1 {
		t.Fatalf("expected first sequence 1, got %d", env.Sequence)
	}
	if env.Payload.OrderID != placed.ID {
		t.Fatalf("expected order %s in payload, got %s", placed.ID, env.Payload.OrderID)
	}
	if env.Payload.TotalCents != 12900 {
		t.Fatalf("expected total 12900, got %d", env.Payload.TotalCents)
	}

	// A second order for the same session carries the next sequence.
	if _, err := carts.AddItem(ctx, sessionID, "desk-mat", 1); err != nil {
		t.Fatalf("add item for second order: %v", err)
	}
	if _, err := processor.Checkout(ctx, sessionID, "Ada Lovelace", "ada@example.com"); err != nil {
		t.Fatalf("second checkout: %v", err)
	}

	env = receiveEnvelope(t, deliveries)
	if env.Sequence != 2 {
		t.Fatalf("expected second sequence 2, got %d", env.Sequence)
	}
}

func bindOrderPlacedQueue(t *testing.T, conn *amqp.Connection) <-chan amqp.Delivery {
	t.Helper()

	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("open channel: %v", err)
	}
	t.Cleanup(func() { _ = ch.Close() })

	err = ch.ExchangeDeclare(events.EventsExchange, "topic", true, false, false, false, nil)
	if err != nil {
		t.Fatalf("declare exchange: %v", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatalf("declare queue: %v", err)
	}
	if err := ch.QueueBind(q.Name, events.OrderPlacedRoutingKey, events.EventsExchange, false, nil); err != nil {
		t.Fatalf("bind queue: %v", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	return deliveries
}

func receiveEnvelope(t *testing.T, deliveries <-chan amqp.Delivery) events.EventEnvelope {
	t.Helper()

	select {
	case d := <-deliveries:
		var env events.EventEnvelope
		if err := json.Unmarshal(d.Body, &env); err != nil {
			t.Fatalf("parse envelope %q: %v", string(d.Body), err)
		}
		return env
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for OrderPlaced event")
		return events.EventEnvelope{}
	}
}
