package broker

import (
	"context"
	"log/slog"

	"tableside/internal/modules/realtime/application/port"
	"tableside/internal/modules/realtime/domain"
)

// StartKafkaConsumers runs one consumer per topic until ctx is done.
func StartKafkaConsumers(ctx context.Context, dispatcher Dispatcher, brokers []string, groupID string, topics []string) {
	if len(brokers) == 0 {
		return
	}
	for _, topic := range topics {
		go func(tp string) {
			var consumer port.PubSubPort = NewKafkaConsumer(brokers, groupID, tp)
			err := consumer.Consume(ctx, func(msg *domain.Message) error {
				return dispatcher.Dispatch(ctx, msg)
			})
			slog.Info("kafka consumer stopped", slog.String("topic", tp), slog.Any("reason", err))
		}(topic)
	}
}
