package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	domain "tableside/internal/modules/realtime/domain"
	"tableside/internal/modules/realtime/infrastructure"
	service "tableside/internal/modules/service/domain"
	"tableside/internal/platform/docstore"
	"tableside/internal/shared/normalization"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewTableWebsocketHandler exposes /ws/restaurants/:rid/tables/:table for the customer
// page. It is public: the socket only receives messages addressed to that table.
func NewTableWebsocketHandler(hub *infrastructure.Hub, store docstore.Store, sendBuffer int) echo.HandlerFunc {
	return func(c echo.Context) error {
		restaurantID := strings.TrimSpace(c.Param("rid"))
		tableNumber, err := service.ParseTableNumber(c.Param("table"))
		if restaurantID == "" || err != nil {
			slog.Warn("table ws bad route", slog.String("restaurantId", restaurantID), slog.String("table", c.Param("table")))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid restaurant or table")
		}
		peerIP := c.RealIP()

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		_, err = store.Get(ctx, docstore.Path{Collection: normalization.CollectionRestaurants, ID: restaurantID})
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "restaurant not found")
		case err != nil:
			slog.Error("table ws restaurant lookup failed", slog.String("restaurantId", restaurantID), slog.Any("error", err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "please try again")
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("table ws upgrade failed", slog.String("restaurantId", restaurantID), slog.String("ip", peerIP), slog.Any("error", err))
			return err
		}

		sessionID := uuid.NewString()
		client := infrastructure.NewClient(hub, conn, infrastructure.ClientInfo{
			UserID:       "table-" + service.TableKey(tableNumber),
			SessionID:    sessionID,
			RestaurantID: restaurantID,
			Role:         "customer",
		}, sendBuffer, nil)
		topic := domain.TableTopic(restaurantID, tableNumber)
		hub.AttachClient(client, []string{topic})

		go client.WritePump()
		go client.ReadPump()

		connected := domain.NewMessage(domain.SystemEntity, domain.ActionConnected, map[string]any{
			"restaurantId": restaurantID,
			"tableNumber":  tableNumber,
			"topics":       []string{topic},
		})
		client.SendDomainMessage(connected.WithMeta(domain.MetaSessionID, sessionID))

		slog.Info("table ws connected", slog.String("restaurantId", restaurantID), slog.Int("tableNumber", tableNumber), slog.String("ip", peerIP))
		return nil
	}
}
