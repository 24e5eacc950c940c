// Package gateway talks to the payment processor: it verifies webhook
// signatures, fetches authoritative subscription state and opens checkout
// sessions.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrSignature is returned when a webhook payload cannot be authenticated.
	ErrSignature = errors.New("webhook signature verification failed")
	// ErrGateway is returned when the payment processor cannot be reached or rejects the call.
	ErrGateway = errors.New("payment gateway error")
)

// Subscription is the authoritative subscription state as reported by the processor.
type Subscription struct {
	ID          string
	CustomerRef string
	Status      string
}

// Event is a verified webhook event. Data holds the raw event object.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

type CheckoutRequest struct {
	Identity    string
	CustomerRef string // optional; reused when the identity already has one
	PriceID     string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Gateway interface {
	RetrieveSubscription(ctx context.Context, subscriptionRef string) (Subscription, error)
	VerifyEventSignature(payload []byte, header, secret string) (Event, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

// ConstructStripeEvent verifies a Stripe-Signature header against payload and
// decodes the event envelope.
func ConstructStripeEvent(payload []byte, header, secret string) (Event, error) {
	if strings.TrimSpace(header) == "" {
		return Event{}, fmt.Errorf("%w: missing signature header", ErrSignature)
	}
	if strings.TrimSpace(secret) == "" {
		return Event{}, fmt.Errorf("%w: webhook secret not configured", ErrSignature)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		out.Data = ev.Data.Raw
	}
	return out, nil
}
