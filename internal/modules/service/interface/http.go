package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tableside/internal/modules/service/application/usecase"
	"tableside/internal/modules/service/domain"
	"tableside/internal/shared/auth"
	"tableside/internal/shared/httputil"
)

var errorMapper = httputil.NewErrorMapper().
	WithDetail(domain.ErrValidation, http.StatusBadRequest).
	WithMapping(domain.ErrNotFound, http.StatusNotFound, "not found")

// CustomerHandler serves the per-table customer page under /api/public/restaurants/:rid.
type CustomerHandler struct {
	customer *usecase.Customer
}

func NewCustomerHandler(customer *usecase.Customer) *CustomerHandler {
	return &CustomerHandler{customer: customer}
}

func (h *CustomerHandler) Register(g *echo.Group) {
	g.GET("/menu", h.menu)
	g.GET("/tables/:table/requests", h.listRequests)
	g.POST("/tables/:table/requests", h.submitRequest)
	g.POST("/tables/:table/server-calls", h.callServer)
	g.POST("/tables/:table/bill", h.requestBill)
}

func tableParam(c echo.Context) (int, error) {
	n, err := domain.ParseTableNumber(c.Param("table"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid table number")
	}
	return n, nil
}

func (h *CustomerHandler) menu(c echo.Context) error {
	menu, err := h.customer.Menu(c.Request().Context(), c.Param("rid"))
	if err != nil {
		return errorMapper.Respond(c, "menu", err)
	}
	return c.JSON(http.StatusOK, menu)
}

func (h *CustomerHandler) listRequests(c echo.Context) error {
	table, err := tableParam(c)
	if err != nil {
		return err
	}
	requests, err := h.customer.TableRequests(c.Request().Context(), c.Param("rid"), table)
	if err != nil {
		return errorMapper.Respond(c, "list requests", err)
	}
	return c.JSON(http.StatusOK, requests)
}

func (h *CustomerHandler) submitRequest(c echo.Context) error {
	table, err := tableParam(c)
	if err != nil {
		return err
	}
	var cmd domain.SubmitRequestCommand
	if err := c.Bind(&cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err := h.customer.SubmitRequest(c.Request().Context(), c.Param("rid"), table, cmd)
	if err != nil {
		return errorMapper.Respond(c, "submit request", err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *CustomerHandler) callServer(c echo.Context) error {
	table, err := tableParam(c)
	if err != nil {
		return err
	}
	call, err := h.customer.CallServer(c.Request().Context(), c.Param("rid"), table)
	if err != nil {
		return errorMapper.Respond(c, "call server", err)
	}
	return c.JSON(http.StatusCreated, call)
}

func (h *CustomerHandler) requestBill(c echo.Context) error {
	table, err := tableParam(c)
	if err != nil {
		return err
	}
	bill, created, err := h.customer.RequestBill(c.Request().Context(), c.Param("rid"), table)
	if err != nil {
		return errorMapper.Respond(c, "request bill", err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, bill)
}

// SettingsHandler serves manager configuration under /api/restaurants/:rid. The group
// must already carry auth.Middleware and auth.RequireRestaurant.
type SettingsHandler struct {
	settings *usecase.Settings
}

func NewSettingsHandler(settings *usecase.Settings) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Register(g *echo.Group) {
	g.PUT("", h.saveRestaurant)
	g.POST("/menu-items", h.addMenuItem)
	g.DELETE("/menu-items/:id", h.deleteMenuItem)
	g.POST("/request-types", h.addRequestType)
	g.DELETE("/request-types/:id", h.deleteRequestType)
	g.POST("/promotions", h.addPromotion)
	g.DELETE("/promotions/:id", h.deletePromotion)
}

func (h *SettingsHandler) saveRestaurant(c echo.Context) error {
	var cmd domain.UpdateRestaurantCommand
	if err := c.Bind(&cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	managerID := ""
	if identity, ok := auth.CurrentUser(c); ok {
		managerID = identity.UserID
	}
	restaurant, created, err := h.settings.SaveRestaurant(c.Request().Context(), c.Param("rid"), managerID, cmd)
	if err != nil {
		return errorMapper.Respond(c, "save restaurant", err)
	}
	if created {
		return c.JSON(http.StatusCreated, restaurant)
	}
	return c.JSON(http.StatusOK, restaurant)
}

func (h *SettingsHandler) addMenuItem(c echo.Context) error {
	var cmd domain.AddMenuItemCommand
	if err := c.Bind(&cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item, err := h.settings.AddMenuItem(c.Request().Context(), c.Param("rid"), cmd)
	if err != nil {
		return errorMapper.Respond(c, "add menu item", err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *SettingsHandler) addRequestType(c echo.Context) error {
	var cmd domain.AddRequestTypeCommand
	if err := c.Bind(&cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	tmpl, err := h.settings.AddRequestType(c.Request().Context(), c.Param("rid"), cmd)
	if err != nil {
		return errorMapper.Respond(c, "add request type", err)
	}
	return c.JSON(http.StatusCreated, tmpl)
}

func (h *SettingsHandler) addPromotion(c echo.Context) error {
	var cmd domain.AddPromotionCommand
	if err := c.Bind(&cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	promo, err := h.settings.AddPromotion(c.Request().Context(), c.Param("rid"), cmd)
	if err != nil {
		return errorMapper.Respond(c, "add promotion", err)
	}
	return c.JSON(http.StatusCreated, promo)
}

func (h *SettingsHandler) deleteMenuItem(c echo.Context) error {
	return h.remove(c, "delete menu item", h.settings.DeleteMenuItem)
}

func (h *SettingsHandler) deleteRequestType(c echo.Context) error {
	return h.remove(c, "delete request type", h.settings.DeleteRequestType)
}

func (h *SettingsHandler) deletePromotion(c echo.Context) error {
	return h.remove(c, "delete promotion", h.settings.DeletePromotion)
}

func (h *SettingsHandler) remove(c echo.Context, op string, fn func(context.Context, string, string) error) error {
	id := strings.TrimSpace(c.Param("id"))
	if err := fn(c.Request().Context(), c.Param("rid"), id); err != nil {
		return errorMapper.Respond(c, op, err)
	}
	return c.NoContent(http.StatusNoContent)
}
