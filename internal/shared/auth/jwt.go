package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("forbidden")
)

const (
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Claims are the identity provider's token claims. Restaurants lists the restaurant
// codes a manager may operate on.
type Claims struct {
	SessionID   string   `json:"sid"`
	Roles       []string `json:"roles"`
	Restaurants []string `json:"restaurants,omitempty"`
	jwt.RegisteredClaims
}

type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

type JWTValidator struct {
	secret    []byte
	publicKey *rsa.PublicKey
	now       func() time.Time
}

// NewJWTValidator verifies RS256 tokens when publicKeyPEM is set, HS256 with secret otherwise.
func NewJWTValidator(secret, publicKeyPEM string) (*JWTValidator, error) {
	v := &JWTValidator{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
	if pem := strings.TrimSpace(publicKeyPEM); pem != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.publicKey = key
	}
	if v.publicKey == nil && len(v.secret) == 0 {
		return nil, errors.New("jwt key not configured: set JWT_SECRET or JWT_PUBLIC_KEY")
	}
	return v, nil
}

func (v *JWTValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc, jwt.WithLeeway(5*time.Second), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.SessionID == "" {
		claims.SessionID = claims.ID
	}
	if claims.SessionID == "" {
		claims.SessionID = claims.Subject
		if claims.ExpiresAt != nil {
			claims.SessionID = fmt.Sprintf("%s:%d", claims.Subject, claims.ExpiresAt.Unix())
		}
	}
	return claims, nil
}

func (v *JWTValidator) keyFunc(t *jwt.Token) (any, error) {
	if v.publicKey != nil {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v, expected RS256", t.Header["alg"])
		}
		return v.publicKey, nil
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return v.secret, nil
}

// Identity is the authenticated caller resolved from a validated token.
type Identity struct {
	UserID      string
	SessionID   string
	Roles       []string
	Restaurants []string
}

func IdentityFromClaims(claims *Claims) *Identity {
	if claims == nil {
		return nil
	}
	return &Identity{
		UserID:      claims.Subject,
		SessionID:   claims.SessionID,
		Roles:       append([]string(nil), claims.Roles...),
		Restaurants: append([]string(nil), claims.Restaurants...),
	}
}

func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return slices.ContainsFunc(i.Roles, func(r string) bool { return strings.EqualFold(r, role) })
}

// CanManage reports whether the caller may operate the given restaurant's manager screens.
func (i *Identity) CanManage(restaurantID string) bool {
	if i == nil {
		return false
	}
	if i.HasRole(RoleAdmin) {
		return true
	}
	return i.HasRole(RoleManager) && slices.Contains(i.Restaurants, strings.TrimSpace(restaurantID))
}
