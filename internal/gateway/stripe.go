package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/metrics"
	"github.com/stripe/stripe-go/v82"
)

type StripeOpts struct {
	SecretKey     string
	FailThreshold int
	OpenFor       time.Duration
}

// StripeGateway implements Gateway over the Stripe API. Calls are not retried;
// Stripe's webhook redelivery is the retry mechanism.
type StripeGateway struct {
	breaker *Breaker

	retrieveSubscription func(ctx context.Context, id string) (*stripe.Subscription, error)
	createCheckout       func(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(opts StripeOpts) *StripeGateway {
	sc := stripe.NewClient(strings.TrimSpace(opts.SecretKey))
	return &StripeGateway{
		breaker: NewBreaker(opts.FailThreshold, opts.OpenFor),
		retrieveSubscription: func(ctx context.Context, id string) (*stripe.Subscription, error) {
			return sc.V1Subscriptions.Retrieve(ctx, id, &stripe.SubscriptionRetrieveParams{})
		},
		createCheckout: func(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
			return sc.V1CheckoutSessions.Create(ctx, params)
		},
	}
}

func (g *StripeGateway) RetrieveSubscription(ctx context.Context, subscriptionRef string) (Subscription, error) {
	if strings.TrimSpace(subscriptionRef) == "" {
		return Subscription{}, fmt.Errorf("%w: empty subscription ref", ErrGateway)
	}

	var sub *stripe.Subscription
	err := g.call(ctx, func() (err error) {
		sub, err = g.retrieveSubscription(ctx, subscriptionRef)
		return err
	})
	if err != nil {
		return Subscription{}, fmt.Errorf("%w: retrieve subscription %s: %w", ErrGateway, subscriptionRef, err)
	}
	if sub == nil {
		return Subscription{}, fmt.Errorf("%w: retrieve subscription %s: empty response", ErrGateway, subscriptionRef)
	}

	out := Subscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.Customer != nil {
		out.CustomerRef = sub.Customer.ID
	}
	return out, nil
}

func (g *StripeGateway) VerifyEventSignature(payload []byte, header, secret string) (Event, error) {
	return ConstructStripeEvent(payload, header, secret)
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(req.Identity),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerRef != "" {
		params.Customer = stripe.String(req.CustomerRef)
	}

	var session *stripe.CheckoutSession
	err := g.call(ctx, func() (err error) {
		session, err = g.createCheckout(ctx, params)
		return err
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: create checkout session: %w", ErrGateway, err)
	}
	if session == nil || session.URL == "" {
		return CheckoutSession{}, fmt.Errorf("%w: create checkout session: empty response", ErrGateway)
	}
	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

var errBreakerOpen = errors.New("circuit open")

// call runs fn behind the breaker. Only failures that say Stripe is unhealthy
// count towards tripping it.
func (g *StripeGateway) call(ctx context.Context, fn func() error) error {
	if !g.breaker.TryAcquire() {
		metrics.GatewayBreakerRejections.Inc()
		return errBreakerOpen
	}

	err := fn()
	switch {
	case err == nil:
		g.breaker.OnSuccess()
	case ctx.Err() != nil:
		g.breaker.Release()
	case isUpstreamFailure(err):
		g.breaker.OnFailure()
	default:
		g.breaker.OnSuccess()
	}
	return err
}

func isUpstreamFailure(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return true // transport level
	}
	switch {
	case se.HTTPStatusCode >= http.StatusInternalServerError,
		se.HTTPStatusCode == http.StatusUnauthorized,
		se.HTTPStatusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
