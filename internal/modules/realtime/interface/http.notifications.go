package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	domain "tableside/internal/modules/realtime/domain"
	"tableside/internal/modules/realtime/infrastructure"
	"tableside/internal/shared/auth"
)

var notificationCounter atomic.Uint64

// NewNotificationsWebsocketHandler exposes /ws/restaurants/:rid/notifications. It runs
// behind auth.Middleware and auth.RequireRestaurant and streams every change of the
// restaurant to the manager.
func NewNotificationsWebsocketHandler(hub *infrastructure.Hub, sendBuffer int) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, ok := auth.CurrentUser(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		}
		restaurantID := strings.TrimSpace(c.Param("rid"))
		peerIP := c.RealIP()

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("notifications ws upgrade failed", slog.String("ip", peerIP), slog.Any("error", err))
			return err
		}

		sessionID := identity.SessionID
		if sessionID == "" {
			sessionID = fmt.Sprintf("notif-%d", notificationCounter.Add(1))
		}
		client := infrastructure.NewClient(hub, conn, infrastructure.ClientInfo{
			UserID:       identity.UserID,
			SessionID:    sessionID,
			RestaurantID: restaurantID,
			Role:         "notifications",
		}, sendBuffer, nil)
		topic := domain.RestaurantTopic(restaurantID)
		hub.AttachClient(client, []string{topic})

		go client.WritePump()
		go client.ReadPump()

		connected := domain.NewMessage(domain.SystemEntity, domain.ActionConnected, map[string]any{
			"mode":   "notifications",
			"topics": []string{topic},
		})
		connected.WithMeta(domain.MetaSessionID, sessionID).WithMeta(domain.MetaUserID, identity.UserID)
		client.SendDomainMessage(connected)

		slog.Info("notifications ws connected", slog.String("userId", identity.UserID), slog.String("restaurantId", restaurantID), slog.String("ip", peerIP))
		return nil
	}
}
