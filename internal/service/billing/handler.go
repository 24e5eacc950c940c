package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmehdipour/prompt-vault/internal/gateway"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"go.uber.org/zap"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	checkoutModeSubscription = "subscription"
)

var relevantEvents = map[string]struct{}{
	EventCheckoutCompleted:   {},
	EventSubscriptionUpdated: {},
	EventSubscriptionDeleted: {},
}

// Relevant reports whether events of this type are acted upon.
func Relevant(eventType string) bool {
	_, ok := relevantEvents[eventType]
	return ok
}

type MembershipReconciler interface {
	ReconcileStatusChange(ctx context.Context, subscriptionRef, customerRef string) (*model.Customer, error)
	ReconcileNewCheckout(ctx context.Context, identity, customerRef, subscriptionRef string, membership model.Membership) (model.Customer, error)
}

var _ MembershipReconciler = (*Reconciler)(nil)

// EventHandler filters verified webhook events and dispatches the relevant
// ones to the reconciler.
type EventHandler struct {
	reconciler MembershipReconciler
	gateway    gateway.Gateway
	log        *zap.Logger
}

func NewEventHandler(reconciler MembershipReconciler, gw gateway.Gateway, log *zap.Logger) *EventHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{reconciler: reconciler, gateway: gw, log: log}
}

// Handle processes one verified event. A non-nil error means the event should
// be redelivered; the outcome is then OutcomeFailed.
func (h *EventHandler) Handle(ctx context.Context, ev gateway.Event) (model.DeliveryOutcome, error) {
	if !Relevant(ev.Type) {
		h.log.Debug("webhook event ignored", zap.String("event_id", ev.ID), zap.String("type", ev.Type))
		return model.OutcomeIgnored, nil
	}

	switch ev.Type {
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		if err := h.handleStatusChange(ctx, ev); err != nil {
			return model.OutcomeFailed, err
		}
		return model.OutcomeDispatched, nil
	default:
		return h.handleCheckout(ctx, ev)
	}
}

func (h *EventHandler) handleStatusChange(ctx context.Context, ev gateway.Event) error {
	obj, err := gateway.DecodeSubscription(ev)
	if err != nil {
		return err
	}
	if obj.ID == "" || obj.Customer == "" {
		return fmt.Errorf("event %s: subscription object missing id or customer", ev.ID)
	}
	_, err = h.reconciler.ReconcileStatusChange(ctx, obj.ID, obj.Customer.String())
	return err
}

func (h *EventHandler) handleCheckout(ctx context.Context, ev gateway.Event) (model.DeliveryOutcome, error) {
	obj, err := gateway.DecodeCheckoutSession(ev)
	if err != nil {
		return model.OutcomeFailed, err
	}
	if obj.Mode != checkoutModeSubscription {
		h.log.Info("checkout session skipped",
			zap.String("event_id", ev.ID),
			zap.String("session_id", obj.ID),
			zap.String("mode", obj.Mode))
		return model.OutcomeSkipped, nil
	}

	identity := strings.TrimSpace(obj.ClientReferenceID)
	customerRef := obj.Customer.String()
	subscriptionRef := obj.Subscription.String()
	switch {
	case subscriptionRef == "":
		return model.OutcomeFailed, fmt.Errorf("checkout session %s: missing subscription", obj.ID)
	case customerRef == "":
		return model.OutcomeFailed, fmt.Errorf("checkout session %s: missing customer", obj.ID)
	case identity == "":
		return model.OutcomeFailed, fmt.Errorf("checkout session %s: missing client_reference_id", obj.ID)
	}

	sub, err := h.gateway.RetrieveSubscription(ctx, subscriptionRef)
	if err != nil {
		return model.OutcomeFailed, err
	}

	if _, err := h.reconciler.ReconcileNewCheckout(ctx, identity, customerRef, subscriptionRef, MembershipFromStatus(sub.Status)); err != nil {
		return model.OutcomeFailed, err
	}
	return model.OutcomeDispatched, nil
}
