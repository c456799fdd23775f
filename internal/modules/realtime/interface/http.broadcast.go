package transport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tableside/internal/modules/realtime/application/usecase"
	"tableside/internal/modules/realtime/domain"
	service "tableside/internal/modules/service/domain"
)

// TableMessageRequest is the body of a manager message to one table page.
type TableMessageRequest struct {
	Message string `json:"message"`
}

type TableMessageResponse struct {
	Success     bool   `json:"success"`
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}

// SubscriberCounter reports how many sockets listen on a topic.
type SubscriberCounter interface {
	Subscribers(topic string) int
}

// NewTableMessageHandler serves POST /api/restaurants/:rid/tables/:table/messages, letting
// a manager push a free-text notification to the customer page of a table.
func NewTableMessageHandler(broadcastUC *usecase.BroadcastUseCase, counter SubscriberCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		restaurantID := strings.TrimSpace(c.Param("rid"))
		tableNumber, err := service.ParseTableNumber(c.Param("table"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid table")
		}

		var req TableMessageRequest
		if err := c.Bind(&req); err != nil {
			slog.Warn("table message: invalid request body", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		text := strings.TrimSpace(req.Message)
		if text == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "message is required")
		}

		topic := domain.TableTopic(restaurantID, tableNumber)
		msg := domain.NewMessage(domain.TableEntity, "message", map[string]any{"notification": text})
		msg.Topic = topic
		msg.WithMeta(domain.MetaRestaurantID, restaurantID).WithMeta(domain.MetaTableNumber, service.TableKey(tableNumber))
		broadcastUC.Execute(c.Request().Context(), msg)

		subscribers := counter.Subscribers(topic)
		slog.Info("table message sent",
			slog.String("restaurantId", restaurantID),
			slog.Int("tableNumber", tableNumber),
			slog.Int("subscribers", subscribers),
		)
		return c.JSON(http.StatusOK, TableMessageResponse{Success: true, Topic: topic, Subscribers: subscribers})
	}
}
