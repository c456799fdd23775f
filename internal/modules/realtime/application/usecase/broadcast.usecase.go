package usecase

import (
	"context"
	"strings"

	"tableside/internal/modules/realtime/application/port"
	"tableside/internal/modules/realtime/domain"
)

type BroadcastUseCase struct {
	broadcaster port.Broadcaster
}

func NewBroadcastUseCase(b port.Broadcaster) *BroadcastUseCase {
	return &BroadcastUseCase{broadcaster: b}
}

func (uc *BroadcastUseCase) Execute(ctx context.Context, msg *domain.Message) {
	uc.broadcaster.Broadcast(ctx, msg)
}

// Relay broadcasts a copy of msg on topic, leaving msg untouched for other handlers.
func (uc *BroadcastUseCase) Relay(ctx context.Context, msg *domain.Message, topic string) {
	topic = strings.TrimSpace(topic)
	if msg == nil || topic == "" {
		return
	}
	relayed := *msg
	relayed.Topic = topic
	if msg.Metadata != nil {
		relayed.Metadata = make(map[string]string, len(msg.Metadata))
		for k, v := range msg.Metadata {
			relayed.Metadata[k] = v
		}
	}
	uc.broadcaster.Broadcast(ctx, &relayed)
}
