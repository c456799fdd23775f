package handler

import (
	"context"
	"log/slog"
	"strings"

	"tableside/internal/modules/realtime/application/port"
	"tableside/internal/modules/realtime/application/usecase"
	"tableside/internal/modules/realtime/domain"
	"tableside/internal/shared/normalization"
)

// EntityStreamHandler relays change events of selected collections to the restaurant
// topic, so manager notification sockets see every change of their restaurant.
type EntityStreamHandler struct {
	entities       map[string]struct{}
	allowedActions map[string]struct{}
	broadcastUC    *usecase.BroadcastUseCase
}

func NewEntityStreamHandler(entities, allowedActions []string, broadcastUC *usecase.BroadcastUseCase) *EntityStreamHandler {
	entitySet := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if v := normalization.NormalizeCollection(e); v != "" {
			entitySet[v] = struct{}{}
		}
	}
	actionSet := make(map[string]struct{}, len(allowedActions))
	for _, a := range allowedActions {
		if v := strings.TrimSpace(strings.ToLower(a)); v != "" {
			actionSet[v] = struct{}{}
		}
	}
	return &EntityStreamHandler{
		entities:       entitySet,
		allowedActions: actionSet,
		broadcastUC:    broadcastUC,
	}
}

func (h *EntityStreamHandler) Topic() string { return port.AnyTopic }

func (h *EntityStreamHandler) Handle(ctx context.Context, msg *domain.Message) error {
	if len(h.entities) > 0 {
		if _, ok := h.entities[normalization.NormalizeCollection(msg.Entity)]; !ok {
			return nil
		}
	}
	if len(h.allowedActions) > 0 {
		if _, ok := h.allowedActions[strings.ToLower(msg.Action)]; !ok {
			return nil
		}
	}
	restaurantID := strings.TrimSpace(msg.Meta(domain.MetaRestaurantID))
	if restaurantID == "" {
		slog.Debug("entity-stream drop: no restaurant", slog.String("topic", msg.Topic), slog.String("resourceId", msg.ResourceID))
		return nil
	}
	h.broadcastUC.Relay(ctx, msg, domain.RestaurantTopic(restaurantID))
	return nil
}

var _ port.TopicHandler = (*EntityStreamHandler)(nil)
