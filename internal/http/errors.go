package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/prompt-vault/internal/gateway"
	"github.com/jmehdipour/prompt-vault/internal/http/middleware"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// errorResponse maps domain errors to a status code and a generic message.
// Unknown errors are logged and reported as 500.
func errorResponse(c echo.Context, l *zap.Logger, op string, err error) error {
	switch {
	case errors.Is(err, middleware.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": "already exists"})
	case errors.Is(err, gateway.ErrGateway):
		l.Warn(op+" failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable"})
	default:
		l.Error(op+" failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
