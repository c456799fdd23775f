package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestAwaitConfirmSkipsStaleConfirms(t *testing.T) {
	t.Parallel()
	acks := make(chan amqp.Confirmation, 3)
	acks <- amqp.Confirmation{DeliveryTag: 1, Ack: false}
	acks <- amqp.Confirmation{DeliveryTag: 2, Ack: true}

	if err := awaitConfirm(context.Background(), acks, 2); err != nil {
		t.Fatalf("expected ack for tag 2, got %v", err)
	}
	if len(acks) != 0 {
		t.Fatalf("expected stale confirm drained, %d left", len(acks))
	}
}

func TestAwaitConfirmResults(t *testing.T) {
	t.Parallel()

	t.Run("nack", func(t *testing.T) {
		t.Parallel()
		acks := make(chan amqp.Confirmation, 1)
		acks <- amqp.Confirmation{DeliveryTag: 5, Ack: false}
		if err := awaitConfirm(context.Background(), acks, 5); !errors.Is(err, ErrNacked) {
			t.Fatalf("expected ErrNacked, got %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		acks := make(chan amqp.Confirmation)
		close(acks)
		if err := awaitConfirm(context.Background(), acks, 1); !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("timeout leaves late confirm for the next caller", func(t *testing.T) {
		t.Parallel()
		acks := make(chan amqp.Confirmation, 2)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := awaitConfirm(ctx, acks, 1); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline, got %v", err)
		}

		acks <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
		acks <- amqp.Confirmation{DeliveryTag: 2, Ack: false}
		if err := awaitConfirm(context.Background(), acks, 2); !errors.Is(err, ErrNacked) {
			t.Fatalf("late confirm of tag 1 must not answer tag 2, got %v", err)
		}
	})
}
