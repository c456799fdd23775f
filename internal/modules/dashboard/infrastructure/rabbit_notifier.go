package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tableside/internal/modules/dashboard/application/port"
	service "tableside/internal/modules/service/domain"
)

// Publisher is the subset of the AMQP client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

type requestResolvedEvent struct {
	Type         string    `json:"type"`
	RestaurantID string    `json:"restaurantId"`
	TableNumber  int       `json:"tableNumber"`
	RequestID    string    `json:"requestId"`
	Notification string    `json:"notification"`
	ResolvedAt   time.Time `json:"resolvedAt"`
}

// RabbitNotifier publishes resolution events routed as requests.<restaurantId>.<table>.
type RabbitNotifier struct {
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

func NewRabbitNotifier(publisher Publisher) *RabbitNotifier {
	return &RabbitNotifier{publisher: publisher, timeout: 5 * time.Second, now: time.Now}
}

func (n *RabbitNotifier) RequestResolved(ctx context.Context, req service.ServiceRequest) error {
	body, err := json.Marshal(requestResolvedEvent{
		Type:         "request.resolved",
		RestaurantID: req.RestaurantID,
		TableNumber:  req.TableNumber,
		RequestID:    req.ID,
		Notification: req.Notification,
		ResolvedAt:   n.now().UTC(),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.publisher.Publish(ctx, RoutingKey(req.RestaurantID, req.TableNumber), body)
}

func RoutingKey(restaurantID string, tableNumber int) string {
	return fmt.Sprintf("requests.%s.%d", restaurantID, tableNumber)
}

var _ port.CustomerNotifier = (*RabbitNotifier)(nil)
