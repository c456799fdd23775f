package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"tableside/internal/modules/realtime/domain"
	"tableside/internal/platform/docstore"
)

// KafkaProducer publishes every applied store mutation to the change topic, keyed by
// restaurant so one restaurant's changes stay ordered within a partition.
type KafkaProducer struct {
	writer *kafka.Writer
	now    func() time.Time
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					slog.Warn("kafka publish failed", slog.String("topic", topic), slog.Int("count", len(messages)), slog.Any("error", err))
				}
			},
		},
		now: time.Now,
	}
}

func (p *KafkaProducer) Observe(ctx context.Context, changes []docstore.Change) {
	messages := make([]kafka.Message, 0, len(changes))
	for _, change := range changes {
		msg := MessageFromChange(change, p.now())
		value, err := json.Marshal(msg)
		if err != nil {
			slog.Error("kafka encode change failed", slog.String("path", change.Path.String()), slog.Any("error", err))
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(msg.Meta(domain.MetaRestaurantID)),
			Value: value,
			Time:  msg.Timestamp,
		})
	}
	if len(messages) == 0 {
		return
	}
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), messages...); err != nil {
		slog.Warn("kafka enqueue failed", slog.Int("count", len(messages)), slog.Any("error", err))
	}
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// Dispatcher routes change messages to topic handlers.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *domain.Message) error
}

// LocalFeed delivers changes straight to the handlers when no broker is configured.
type LocalFeed struct {
	dispatcher Dispatcher
	now        func() time.Time
}

func NewLocalFeed(dispatcher Dispatcher) *LocalFeed {
	return &LocalFeed{dispatcher: dispatcher, now: time.Now}
}

func (f *LocalFeed) Observe(ctx context.Context, changes []docstore.Change) {
	for _, change := range changes {
		msg := MessageFromChange(change, f.now())
		if err := f.dispatcher.Dispatch(context.WithoutCancel(ctx), msg); err != nil {
			slog.Warn("change handler error", slog.String("topic", msg.Topic), slog.Any("error", err))
		}
	}
}

var (
	_ docstore.Observer = (*KafkaProducer)(nil)
	_ docstore.Observer = (*LocalFeed)(nil)
)
