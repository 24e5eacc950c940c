package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/prompt-vault/internal/http/middleware"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func listPromptsHandler(prompts repository.PromptsRepository, l *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, err := middleware.IdentityFromCtx(c)
		if err != nil {
			return errorResponse(c, l, "list prompts", err)
		}

		list, err := prompts.List(c.Request().Context(), owner)
		if err != nil {
			return errorResponse(c, l, "list prompts", err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func createPromptHandler(prompts repository.PromptsRepository, l *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, err := middleware.IdentityFromCtx(c)
		if err != nil {
			return errorResponse(c, l, "create prompt", err)
		}

		in, ok := bindPromptInput(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name, description and content are required"})
		}

		p, err := prompts.Create(c.Request().Context(), owner, in)
		if err != nil {
			return errorResponse(c, l, "create prompt", err)
		}
		return c.JSON(http.StatusCreated, p)
	}
}

func updatePromptHandler(prompts repository.PromptsRepository, l *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, err := middleware.IdentityFromCtx(c)
		if err != nil {
			return errorResponse(c, l, "update prompt", err)
		}

		id, ok := promptID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}
		in, ok := bindPromptInput(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name, description and content are required"})
		}

		p, err := prompts.Update(c.Request().Context(), owner, id, in)
		if err != nil {
			return errorResponse(c, l, "update prompt", err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func deletePromptHandler(prompts repository.PromptsRepository, l *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, err := middleware.IdentityFromCtx(c)
		if err != nil {
			return errorResponse(c, l, "delete prompt", err)
		}

		id, ok := promptID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}

		p, err := prompts.Delete(c.Request().Context(), owner, id)
		if err != nil {
			return errorResponse(c, l, "delete prompt", err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func bindPromptInput(c echo.Context) (model.PromptInput, bool) {
	var in model.PromptInput
	if err := c.Bind(&in); err != nil {
		return model.PromptInput{}, false
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Content = strings.TrimSpace(in.Content)
	if err := c.Validate(&in); err != nil {
		return model.PromptInput{}, false
	}
	return in, true
}

func promptID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
