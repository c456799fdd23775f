package port

import (
	"context"

	"tableside/internal/modules/realtime/domain"
)

// PubSubPort consumes change events from the message broker.
type PubSubPort interface {
	Consume(ctx context.Context, handler func(*domain.Message) error) error
}

// Broadcaster delivers messages to connected websocket clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg *domain.Message)
}

// AnyTopic subscribes a TopicHandler to every change event.
const AnyTopic = "*"

// TopicHandler reacts to change events of one topic. Topic "*" receives every event.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, msg *domain.Message) error
}
