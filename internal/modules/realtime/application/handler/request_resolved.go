package handler

import (
	"context"
	"fmt"
	"log/slog"

	"tableside/internal/modules/realtime/application/port"
	"tableside/internal/modules/realtime/application/usecase"
	"tableside/internal/modules/realtime/domain"
	service "tableside/internal/modules/service/domain"
	"tableside/internal/shared/normalization"
)

// RequestResolvedHandler pushes the resolution notification of a service request to
// the customer page of its table.
type RequestResolvedHandler struct {
	UseCase *usecase.BroadcastUseCase
}

func (h *RequestResolvedHandler) Topic() string {
	return domain.CustomTopic(normalization.CollectionRequests, domain.ActionUpdated)
}

func (h *RequestResolvedHandler) Handle(ctx context.Context, msg *domain.Message) error {
	data, ok := msg.Data.(map[string]any)
	if !ok || !normalization.AsBool(data[service.FieldResolved]) {
		return nil
	}
	notification := normalization.AsString(data[service.FieldNotification])
	if notification == "" {
		return nil
	}
	restaurantID := msg.Meta(domain.MetaRestaurantID)
	if restaurantID == "" {
		restaurantID = normalization.AsString(data[service.FieldRestaurantID])
	}
	tableNumber, err := service.TableNumberOf(data)
	if err != nil {
		return fmt.Errorf("request %s: %w", msg.ResourceID, err)
	}
	topic := domain.TableTopic(restaurantID, tableNumber)
	if topic == "" {
		return fmt.Errorf("request %s: %w: missing restaurant", msg.ResourceID, service.ErrMalformedRecord)
	}

	out := domain.NewMessage(domain.TableEntity, domain.ActionResolved, map[string]any{
		"requestId":    msg.ResourceID,
		"notification": notification,
	})
	out.Topic = topic
	out.ResourceID = msg.ResourceID
	out.WithMeta(domain.MetaRestaurantID, restaurantID).
		WithMeta(domain.MetaTableNumber, service.TableKey(tableNumber))
	h.UseCase.Execute(ctx, out)
	slog.Debug("request resolution pushed", slog.String("restaurantId", restaurantID), slog.Int("tableNumber", tableNumber), slog.String("requestId", msg.ResourceID))
	return nil
}

var _ port.TopicHandler = (*RequestResolvedHandler)(nil)
