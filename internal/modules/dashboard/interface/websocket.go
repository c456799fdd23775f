package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"tableside/internal/modules/dashboard/application/usecase"
	"tableside/internal/modules/dashboard/infrastructure"
	rtdomain "tableside/internal/modules/realtime/domain"
	rtinfra "tableside/internal/modules/realtime/infrastructure"
	service "tableside/internal/modules/service/domain"
	"tableside/internal/shared/auth"
	"tableside/internal/shared/httputil"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var connectErrors = httputil.NewErrorMapper().
	WithMapping(usecase.ErrMissingRestaurant, http.StatusBadRequest, "missing restaurant").
	WithDefault(http.StatusServiceUnavailable, "dashboard unavailable, please try again")

// NewWebsocketHandler serves /ws/restaurants/:rid/dashboard. It must run behind
// auth.Middleware and auth.RequireRestaurant.
func NewWebsocketHandler(hub *rtinfra.Hub, registry *infrastructure.Registry, sendBuffer int) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, ok := auth.CurrentUser(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		restaurantID := strings.TrimSpace(c.Param("rid"))

		ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
		defer cancel()
		aggregator, release, err := registry.Acquire(ctx, restaurantID)
		if err != nil {
			return connectErrors.Respond(c, "dashboard connect", err)
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			release()
			slog.Error("dashboard ws upgrade failed", slog.String("restaurantId", restaurantID), slog.Any("error", err))
			return err
		}

		commands := &commandHandler{aggregator: aggregator}
		client := rtinfra.NewClient(hub, conn, rtinfra.ClientInfo{
			UserID:       identity.UserID,
			SessionID:    identity.SessionID,
			RestaurantID: restaurantID,
			Role:         "dashboard",
		}, sendBuffer, commands.handle)
		client.Commands().AllowTopics(RestaurantTopics(restaurantID))
		client.AddCloseHook(func(*rtinfra.Client) { release() })

		topic := rtdomain.DashboardTopic(restaurantID)
		hub.AttachClient(client, []string{topic})

		go client.WritePump()
		go client.ReadPump()

		connected := rtdomain.NewMessage(rtdomain.SystemEntity, rtdomain.ActionConnected, map[string]any{
			"restaurantId": restaurantID,
			"topics":       []string{topic},
			"roles":        identity.Roles,
		})
		client.SendDomainMessage(connected.WithMeta(rtdomain.MetaSessionID, identity.SessionID))
		client.SendDomainMessage(infrastructure.SnapshotMessage(restaurantID, aggregator.Dashboard()))

		slog.Info("dashboard ws connected",
			slog.String("restaurantId", restaurantID),
			slog.String("userId", identity.UserID),
			slog.String("ip", c.RealIP()),
		)
		return nil
	}
}

// RestaurantTopics lets a manager socket subscribe to the topics of its own restaurant.
func RestaurantTopics(restaurantID string) func(*rtinfra.Client, string) bool {
	tablePrefix := rtdomain.TableEntity + "." + restaurantID + "."
	return func(_ *rtinfra.Client, topic string) bool {
		switch {
		case topic == rtdomain.DashboardTopic(restaurantID), topic == rtdomain.RestaurantTopic(restaurantID):
			return true
		case strings.HasPrefix(topic, tablePrefix):
			_, err := service.ParseTableNumber(strings.TrimPrefix(topic, tablePrefix))
			return err == nil
		}
		return false
	}
}

type tablePayload struct {
	TableNumber any    `json:"tableNumber"`
	RequestID   string `json:"requestId"`
}

type commandHandler struct {
	aggregator *usecase.Aggregator
}

var (
	errInvalidPayload    = errors.New("invalid payload")
	errUnsupportedAction = errors.New("unsupported action")
)

// tableActions take a {tableNumber} payload.
var tableActions = map[string]struct{}{
	"resolve_request":      {},
	"resolve_server_calls": {},
	"resolve_bill":         {},
	"clear_table":          {},
	"open_table":           {},
}

func (h *commandHandler) handle(ctx context.Context, client *rtinfra.Client, cmd rtinfra.Command) {
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	if err := h.run(ctx, client, action, cmd); err != nil {
		slog.Warn("dashboard command failed",
			slog.String("restaurantId", client.RestaurantID()),
			slog.String("action", action),
			slog.Any("error", err),
		)
		rtinfra.SendError(client, rtdomain.DashboardEntity, action, commandErrorReason(err))
	}
}

func (h *commandHandler) run(ctx context.Context, client *rtinfra.Client, action string, cmd rtinfra.Command) error {
	agg := h.aggregator
	switch action {
	case "resolve_all":
		return agg.ResolveAllNonSpecial(ctx)
	case "close_table":
		agg.CloseTable()
		return nil
	case "snapshot":
		client.SendDomainMessage(infrastructure.SnapshotMessage(agg.RestaurantID(), agg.Dashboard()))
		return nil
	}
	if _, ok := tableActions[action]; !ok {
		return errUnsupportedAction
	}

	var payload tablePayload
	if err := cmd.Decode(&payload); err != nil {
		return errInvalidPayload
	}
	tableNumber, err := service.ParseTableNumber(payload.TableNumber)
	if err != nil {
		return errInvalidPayload
	}

	switch action {
	case "resolve_request":
		if strings.TrimSpace(payload.RequestID) == "" {
			return errInvalidPayload
		}
		return agg.ResolveRequest(ctx, tableNumber, payload.RequestID)
	case "resolve_server_calls":
		return agg.ResolveAllServerCalls(ctx, tableNumber)
	case "resolve_bill":
		return agg.ResolveBill(ctx, tableNumber)
	case "clear_table":
		return agg.ClearTable(ctx, tableNumber)
	case "open_table":
		agg.OpenTable(tableNumber)
		return nil
	}
	return errUnsupportedAction
}

func commandErrorReason(err error) string {
	switch {
	case errors.Is(err, errInvalidPayload):
		return "invalid payload"
	case errors.Is(err, errUnsupportedAction):
		return "unsupported action"
	case errors.Is(err, usecase.ErrUnknownRecord):
		return "this request is no longer pending"
	case errors.Is(err, usecase.ErrNotConnected):
		return "dashboard is not connected"
	case errors.Is(err, usecase.ErrBatchFailed):
		return "some updates failed, please try again"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timeout"
	default:
		return "something went wrong, please try again"
	}
}
