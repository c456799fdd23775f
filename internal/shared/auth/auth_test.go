package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func managerClaims(restaurants ...string) Claims {
	return Claims{
		Roles:       []string{RoleManager},
		Restaurants: restaurants,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "manager-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestJWTValidatorValidate(t *testing.T) {
	validator, err := NewJWTValidator(testSecret, "")
	if err != nil {
		t.Fatalf("NewJWTValidator: %v", err)
	}

	claims, err := validator.Validate(signToken(t, managerClaims("ABC123")))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "manager-1" || claims.SessionID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := validator.Validate(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}

	expired := managerClaims("ABC123")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	if _, err := validator.Validate(signToken(t, expired)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	other, _ := NewJWTValidator("another-secret", "")
	if _, err := other.Validate(signToken(t, managerClaims())); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestNewJWTValidatorRequiresKey(t *testing.T) {
	if _, err := NewJWTValidator(" ", ""); err == nil {
		t.Fatal("expected error without key material")
	}
	if _, err := NewJWTValidator("", "not a pem"); err == nil {
		t.Fatal("expected error for malformed public key")
	}
}

func TestIdentityCanManage(t *testing.T) {
	manager := &Identity{UserID: "u", Roles: []string{"Manager"}, Restaurants: []string{"ABC123"}}
	if !manager.CanManage("ABC123") || manager.CanManage("ZZZ999") {
		t.Fatal("manager scope not honoured")
	}
	admin := &Identity{UserID: "a", Roles: []string{RoleAdmin}}
	if !admin.CanManage("anything") {
		t.Fatal("admin must manage every restaurant")
	}
	var nobody *Identity
	if nobody.CanManage("ABC123") {
		t.Fatal("nil identity must not manage")
	}
}

func TestExtractBearerTokenFromHeader(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  xyz ": "xyz",
		"Basic abc":    "",
		"":             "",
		"Bearer":       "",
	}
	for header, want := range cases {
		if got := ExtractBearerTokenFromHeader(header); got != want {
			t.Fatalf("ExtractBearerTokenFromHeader(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestMiddlewareAndRestaurantScope(t *testing.T) {
	validator, _ := NewJWTValidator(testSecret, "")
	e := echo.New()
	handler := func(c echo.Context) error {
		identity, ok := CurrentUser(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.String(http.StatusOK, identity.UserID)
	}
	e.GET("/api/restaurants/:rid", handler, Middleware(validator), RequireRestaurant("rid"))

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "no token", path: "/api/restaurants/ABC123", want: http.StatusUnauthorized},
		{name: "scoped manager", path: "/api/restaurants/ABC123", header: "Bearer " + signToken(t, managerClaims("ABC123")), want: http.StatusOK},
		{name: "other restaurant", path: "/api/restaurants/ZZZ999", header: "Bearer " + signToken(t, managerClaims("ABC123")), want: http.StatusForbidden},
		{name: "query token", path: "/api/restaurants/ABC123?token=" + signToken(t, managerClaims("ABC123")), want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
