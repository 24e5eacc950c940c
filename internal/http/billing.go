package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/prompt-vault/internal/config"
	"github.com/jmehdipour/prompt-vault/internal/gateway"
	"github.com/jmehdipour/prompt-vault/internal/http/middleware"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type membershipResp struct {
	Identity   string           `json:"identity"`
	Membership model.Membership `json:"membership"`
}

// membershipHandler reports the caller's tier; callers without a customer row are free.
func membershipHandler(customers repository.CustomersRepository, l *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := middleware.IdentityFromCtx(c)
		if err != nil {
			return errorResponse(c, l, "get membership", err)
		}

		cu, err := customers.GetByIdentity(c.Request().Context(), identity)
		if err != nil {
			return errorResponse(c, l, "get membership", err)
		}

		resp := membershipResp{Identity: identity, Membership: model.MembershipFree}
		if cu != nil {
			resp.Membership = cu.Membership
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// checkoutHandler opens a subscription checkout bound to the caller through
// client_reference_id, which the checkout webhook later reads back.
func checkoutHandler(customers repository.CustomersRepository, gw gateway.Gateway, cfg config.StripeConfig, l *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := middleware.IdentityFromCtx(c)
		if err != nil {
			return errorResponse(c, l, "create checkout", err)
		}
		if strings.TrimSpace(cfg.PriceID) == "" {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "checkout is not configured"})
		}

		ctx := c.Request().Context()
		req := gateway.CheckoutRequest{
			Identity:   identity,
			PriceID:    cfg.PriceID,
			SuccessURL: cfg.SuccessURL,
			CancelURL:  cfg.CancelURL,
		}
		cu, err := customers.GetByIdentity(ctx, identity)
		if err != nil {
			return errorResponse(c, l, "create checkout", err)
		}
		if cu != nil && cu.ExternalCustomerRef != nil {
			req.CustomerRef = *cu.ExternalCustomerRef
		}

		session, err := gw.CreateCheckoutSession(ctx, req)
		if err != nil {
			return errorResponse(c, l, "create checkout", err)
		}
		return c.JSON(http.StatusOK, session)
	}
}
