package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"tableside/internal/modules/layout/application/usecase"
	"tableside/internal/modules/layout/domain"
	"tableside/internal/platform/docstore/memstore"
	"tableside/internal/shared/auth"
)

func newRouter() *echo.Echo {
	e := echo.New()
	g := e.Group("/api/restaurants/:rid", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth.WithIdentity(c, &auth.Identity{UserID: "m1", Roles: []string{auth.RoleManager}, Restaurants: []string{"ABC123"}})
			return next(c)
		}
	})
	NewHandler(usecase.NewEditor(memstore.New())).Register(g)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLayoutEditorFlow(t *testing.T) {
	e := newRouter()

	rec := do(t, e, http.MethodPost, "/api/restaurants/ABC123/layout/session", `{"count":12,"viewport":{"width":1200,"height":800}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d body=%s", rec.Code, rec.Body.String())
	}
	var view domain.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.GridUnit != 40 || len(view.Tables) != 12 {
		t.Fatalf("view = %+v", view)
	}

	rec = do(t, e, http.MethodPost, "/api/restaurants/ABC123/layout/drag", `{"tableNumber":"Table 3","x":501,"y":419}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drag status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, e, http.MethodPost, "/api/restaurants/ABC123/layout/optimize", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("optimize status = %d", rec.Code)
	}
	rec = do(t, e, http.MethodPut, "/api/restaurants/ABC123/layout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/api/restaurants/ABC123/layout", "")
	var layout usecase.Layout
	if err := json.Unmarshal(rec.Body.Bytes(), &layout); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if len(layout.Tables) != 12 || layout.Tables[0].Number != 1 {
		t.Fatalf("layout = %+v", layout)
	}

	rec = do(t, e, http.MethodPost, "/api/restaurants/ABC123/layout/optimize", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("optimize after save status = %d", rec.Code)
	}
}

func TestLayoutValidationErrors(t *testing.T) {
	e := newRouter()
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "zero count", method: http.MethodPost, path: "/layout/session", body: `{"count":"0"}`, status: http.StatusBadRequest},
		{name: "text count", method: http.MethodPost, path: "/layout/session", body: `{"count":"many"}`, status: http.StatusBadRequest},
		{name: "drag without session", method: http.MethodPost, path: "/layout/drag", body: `{"tableNumber":1,"x":1,"y":1}`, status: http.StatusNotFound},
		{name: "duplicate tables", method: http.MethodPut, path: "/layout", body: `{"tables":[{"tableNumber":1},{"tableNumber":1}]}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, e, tc.method, "/api/restaurants/ABC123"+tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}
