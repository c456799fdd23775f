package infrastructure

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"tableside/internal/modules/realtime/application/port"
	"tableside/internal/modules/realtime/domain"
)

// WildcardTopic registers a handler for every message.
const WildcardTopic = port.AnyTopic

type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string][]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Topic()] = append(r.handlers[h.Topic()], h)
}

// Dispatch runs every handler of the message topic plus the wildcard handlers.
func (r *HandlerRegistry) Dispatch(ctx context.Context, msg *domain.Message) error {
	if msg == nil {
		return nil
	}
	r.mu.RLock()
	targets := append([]port.TopicHandler{}, r.handlers[msg.Topic]...)
	if msg.Topic != WildcardTopic {
		targets = append(targets, r.handlers[WildcardTopic]...)
	}
	r.mu.RUnlock()

	var result *multierror.Error
	for _, h := range targets {
		if err := h.Handle(ctx, msg); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
