package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echo "github.com/labstack/echo/v4"
)

// ErrUnauthorized is returned when a request carries no verified identity.
var ErrUnauthorized = errors.New("unauthorized")

const identityKey = "identity"

type IdentityConfig struct {
	Secret string // HS256 shared secret
	Issuer string // optional; enforced when set
}

// IdentityFromCtx returns the caller identity stored by JWTIdentityMiddleware.
func IdentityFromCtx(c echo.Context) (string, error) {
	id, ok := c.Get(identityKey).(string)
	if !ok || id == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}

// JWTIdentityMiddleware authenticates "Authorization: Bearer <jwt>" and stores
// the token subject as the caller identity.
func JWTIdentityMiddleware(cfg IdentityConfig) echo.MiddlewareFunc {
	secret := []byte(cfg.Secret)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			identity, err := ParseIdentity(raw, secret, opts...)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// ParseIdentity verifies raw and returns its subject claim.
func ParseIdentity(raw string, secret []byte, opts ...jwt.ParserOption) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return "", ErrUnauthorized
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return sub, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
