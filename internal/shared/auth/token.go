package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const identityKey = "auth.identity"

// ExtractBearerTokenFromHeader returns the token of a "Bearer <token>" header value.
func ExtractBearerTokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// ExtractToken looks at the Authorization header first and falls back to the query
// parameter, which browsers need for websocket upgrades.
func ExtractToken(r *http.Request, queryParam string) string {
	if r == nil {
		return ""
	}
	if token := ExtractBearerTokenFromHeader(r.Header.Get(echo.HeaderAuthorization)); token != "" {
		return token
	}
	if queryParam == "" {
		queryParam = "token"
	}
	if r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get(queryParam))
}

// Middleware validates the request token and stores the caller identity on the context.
func Middleware(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ExtractToken(c.Request(), "token")
			claims, err := validator.Validate(token)
			if err != nil {
				slog.Warn("auth rejected request", slog.String("path", c.Path()), slog.String("ip", c.RealIP()), slog.Any("error", err))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
			}
			c.Set(identityKey, IdentityFromClaims(claims))
			return next(c)
		}
	}
}

// RequireRestaurant rejects callers that cannot manage the restaurant named by the route param.
func RequireRestaurant(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			restaurantID := c.Param(param)
			if !identity.CanManage(restaurantID) {
				slog.Warn("auth restaurant scope denied", slog.String("userId", identity.UserID), slog.String("restaurantId", restaurantID))
				return echo.NewHTTPError(http.StatusForbidden, "not a manager of this restaurant")
			}
			return next(c)
		}
	}
}

// CurrentUser returns the identity set by Middleware, if any.
func CurrentUser(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(identityKey).(*Identity)
	return identity, ok && identity != nil
}

// WithIdentity stores an identity on the context directly.
func WithIdentity(c echo.Context, identity *Identity) {
	c.Set(identityKey, identity)
}
