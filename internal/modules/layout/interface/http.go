package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tableside/internal/modules/layout/application/usecase"
	"tableside/internal/modules/layout/domain"
	service "tableside/internal/modules/service/domain"
	"tableside/internal/shared/auth"
	"tableside/internal/shared/httputil"
)

var errorMapper = httputil.NewErrorMapper().
	WithMapping(usecase.ErrNoSession, http.StatusNotFound, "no layout session in progress").
	WithMapping(domain.ErrInvalidTransition, http.StatusConflict, "this layout step is not available right now").
	WithDetail(service.ErrValidation, http.StatusBadRequest)

// Handler serves the manager layout editor under /api/restaurants/:rid/layout.
type Handler struct {
	editor *usecase.Editor
}

func NewHandler(editor *usecase.Editor) *Handler {
	return &Handler{editor: editor}
}

// Register mounts the routes on a group already guarded by auth.Middleware and
// auth.RequireRestaurant("rid").
func (h *Handler) Register(g *echo.Group) {
	g.GET("/layout", h.current)
	g.PUT("/layout", h.save)
	g.POST("/layout/session", h.start)
	g.GET("/layout/session", h.session)
	g.POST("/layout/drag", h.drag)
	g.POST("/layout/optimize", h.optimize)
}

type startRequest struct {
	Count    any           `json:"count"`
	Resume   bool          `json:"resume"`
	Viewport domain.Canvas `json:"viewport"`
}

type dragRequest struct {
	TableNumber any     `json:"tableNumber"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

type saveRequest struct {
	Tables []domain.Placement `json:"tables"`
}

func managerID(c echo.Context) string {
	if identity, ok := auth.CurrentUser(c); ok {
		return identity.UserID
	}
	return ""
}

func (h *Handler) current(c echo.Context) error {
	layout, err := h.editor.Current(c.Request().Context(), c.Param("rid"))
	if err != nil {
		return errorMapper.Respond(c, "layout current", err)
	}
	return c.JSON(http.StatusOK, layout)
}

func (h *Handler) start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rid := c.Param("rid")
	var (
		view domain.View
		err  error
	)
	if req.Resume {
		view, err = h.editor.Resume(c.Request().Context(), rid, managerID(c), req.Viewport)
	} else {
		view, err = h.editor.Start(rid, managerID(c), countText(req.Count), req.Viewport)
	}
	if err != nil {
		return errorMapper.Respond(c, "layout start", err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) session(c echo.Context) error {
	view, err := h.editor.View(c.Param("rid"), managerID(c))
	if err != nil {
		return errorMapper.Respond(c, "layout session", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) drag(c echo.Context) error {
	var req dragRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	tableNumber, err := service.ParseTableNumber(req.TableNumber)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid table number")
	}
	view, err := h.editor.Drag(c.Param("rid"), managerID(c), tableNumber, service.Position{X: req.X, Y: req.Y})
	if err != nil {
		return errorMapper.Respond(c, "layout drag", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) optimize(c echo.Context) error {
	view, err := h.editor.Optimize(c.Param("rid"), managerID(c))
	if err != nil {
		return errorMapper.Respond(c, "layout optimize", err)
	}
	return c.JSON(http.StatusOK, view)
}

// save persists the explicit table set of the body when present, the session otherwise.
func (h *Handler) save(c echo.Context) error {
	var req saveRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	ctx := c.Request().Context()
	rid := c.Param("rid")
	if len(req.Tables) > 0 {
		layout, err := h.editor.SaveTables(ctx, rid, req.Tables)
		if err != nil {
			return errorMapper.Respond(c, "layout save", err)
		}
		return c.JSON(http.StatusOK, layout)
	}
	view, err := h.editor.Save(ctx, rid, managerID(c))
	if err != nil {
		return errorMapper.Respond(c, "layout save", err)
	}
	return c.JSON(http.StatusOK, view)
}

func countText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}
