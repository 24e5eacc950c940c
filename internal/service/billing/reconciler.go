package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/gateway"
	"github.com/jmehdipour/prompt-vault/internal/metrics"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	"go.uber.org/zap"
)

var ErrInvalidArgument = errors.New("invalid argument")

const (
	SourceCheckout     = "checkout"
	SourceStatusChange = "status_change"

	DefaultPublishTimeout = 500 * time.Millisecond
)

// Reconciler derives local membership from the processor's subscription state
// and writes it to the customer store.
type Reconciler struct {
	customers repository.CustomersRepository
	gateway   gateway.Gateway
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time

	publishTimeout time.Duration
}

type ReconcilerOption func(*Reconciler)

// WithPublishTimeout bounds each membership publish. Non-positive values keep
// the default.
func WithPublishTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.publishTimeout = d
		}
	}
}

func NewReconciler(customers repository.CustomersRepository, gw gateway.Gateway, pub Publisher, log *zap.Logger, opts ...ReconcilerOption) *Reconciler {
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reconciler{
		customers:      customers,
		gateway:        gw,
		publisher:      pub,
		log:            log,
		now:            time.Now,
		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconcileStatusChange re-fetches the subscription and applies its mapped
// membership to the customer bound to customerRef. A customer that does not
// exist yet is logged and skipped; the result is then nil.
func (r *Reconciler) ReconcileStatusChange(ctx context.Context, subscriptionRef, customerRef string) (*model.Customer, error) {
	if strings.TrimSpace(subscriptionRef) == "" || strings.TrimSpace(customerRef) == "" {
		return nil, fmt.Errorf("%w: subscription and customer refs are required", ErrInvalidArgument)
	}

	sub, err := r.gateway.RetrieveSubscription(ctx, subscriptionRef)
	if err != nil {
		return nil, err
	}
	membership := MembershipFromStatus(sub.Status)

	c, err := r.customers.UpdateByExternalCustomerRef(ctx, customerRef, model.CustomerPatch{
		Membership:              model.MembershipPtr(membership),
		ExternalSubscriptionRef: model.StringPtr(subscriptionRef),
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		metrics.ReconciliationsTotal.WithLabelValues(SourceStatusChange, "unmatched").Inc()
		r.log.Warn("customer not found for external customer ref",
			zap.String("customer_ref", customerRef),
			zap.String("subscription_ref", subscriptionRef),
			zap.String("status", sub.Status))
		return nil, nil
	}

	metrics.ReconciliationsTotal.WithLabelValues(SourceStatusChange, membership.String()).Inc()
	r.log.Info("membership reconciled",
		zap.String("identity", c.Identity),
		zap.String("subscription_ref", subscriptionRef),
		zap.String("status", sub.Status),
		zap.String("membership", membership.String()))
	r.publish(ctx, *c, SourceStatusChange)
	return c, nil
}

// ReconcileNewCheckout binds identity to the processor's customer and
// subscription refs, creating the customer row on first checkout.
func (r *Reconciler) ReconcileNewCheckout(ctx context.Context, identity, customerRef, subscriptionRef string, membership model.Membership) (model.Customer, error) {
	if strings.TrimSpace(identity) == "" || strings.TrimSpace(customerRef) == "" || strings.TrimSpace(subscriptionRef) == "" {
		return model.Customer{}, fmt.Errorf("%w: identity, customer and subscription refs are required", ErrInvalidArgument)
	}
	if !membership.Valid() {
		return model.Customer{}, fmt.Errorf("%w: membership %q", ErrInvalidArgument, membership)
	}

	patch := model.CustomerPatch{
		Membership:              model.MembershipPtr(membership),
		ExternalCustomerRef:     model.StringPtr(customerRef),
		ExternalSubscriptionRef: model.StringPtr(subscriptionRef),
	}

	existing, err := r.customers.GetByIdentity(ctx, identity)
	if err != nil {
		return model.Customer{}, err
	}

	var c model.Customer
	if existing != nil {
		c, err = r.customers.UpdateByIdentity(ctx, identity, patch)
	} else {
		c, err = r.customers.Create(ctx, model.Customer{
			Identity:                identity,
			Membership:              membership,
			ExternalCustomerRef:     model.StringPtr(customerRef),
			ExternalSubscriptionRef: model.StringPtr(subscriptionRef),
			CreatedAt:               r.now().UTC(),
		})
		// a concurrent delivery created the row first
		if errors.Is(err, repository.ErrConflict) {
			c, err = r.customers.UpdateByIdentity(ctx, identity, patch)
		}
	}
	if err != nil {
		return model.Customer{}, err
	}

	metrics.ReconciliationsTotal.WithLabelValues(SourceCheckout, membership.String()).Inc()
	r.log.Info("checkout reconciled",
		zap.String("identity", identity),
		zap.String("customer_ref", customerRef),
		zap.String("subscription_ref", subscriptionRef),
		zap.String("membership", membership.String()),
		zap.Bool("created", existing == nil))
	r.publish(ctx, c, SourceCheckout)
	return c, nil
}

func (r *Reconciler) publish(ctx context.Context, c model.Customer, source string) {
	ev := model.MembershipEvent{
		Identity:   c.Identity,
		Membership: c.Membership,
		Source:     source,
		OccurredAt: r.now().UTC(),
	}
	if c.ExternalCustomerRef != nil {
		ev.ExternalCustomerRef = *c.ExternalCustomerRef
	}
	if c.ExternalSubscriptionRef != nil {
		ev.ExternalSubscriptionRef = *c.ExternalSubscriptionRef
	}

	// the customer row is already written; the publish must not hold the caller
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.publishTimeout)
	defer cancel()
	if err := r.publisher.PublishMembershipChange(pubCtx, ev); err != nil {
		r.log.Warn("publish membership change failed",
			zap.String("identity", c.Identity),
			zap.String("source", source),
			zap.Error(err))
	}
}
