package billing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/gateway"
	gwmocks "github.com/jmehdipour/prompt-vault/internal/gateway/mocks"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	"github.com/jmehdipour/prompt-vault/internal/repository/memory"
	repomocks "github.com/jmehdipour/prompt-vault/internal/repository/mocks"
	"github.com/jmehdipour/prompt-vault/internal/service/billing"
	"github.com/jmehdipour/prompt-vault/internal/service/billing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func subscription(id, customer, status string) gateway.Subscription {
	return gateway.Subscription{ID: id, CustomerRef: customer, Status: status}
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestReconcileNewCheckout_CreatesCustomer(t *testing.T) {
	ctx := context.Background()
	customers := memory.NewCustomers()
	r := billing.NewReconciler(customers, new(gwmocks.Gateway), nil, zap.NewNop())

	c, err := r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Identity)
	assert.Equal(t, model.MembershipPro, c.Membership)
	assert.Equal(t, "cus_1", *c.ExternalCustomerRef)
	assert.Equal(t, "sub_1", *c.ExternalSubscriptionRef)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, 1, customers.Len())
}

func TestReconcileNewCheckout_UpdatesExistingAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	customers := memory.NewCustomers()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err := customers.Create(ctx, model.Customer{Identity: "u1", CreatedAt: created})
	require.NoError(t, err)

	r := billing.NewReconciler(customers, new(gwmocks.Gateway), nil, zap.NewNop())
	c, err := r.ReconcileNewCheckout(ctx, "u1", "cus_2", "sub_2", model.MembershipPro)
	require.NoError(t, err)

	assert.Equal(t, created, c.CreatedAt)
	assert.Equal(t, model.MembershipPro, c.Membership)
	assert.Equal(t, "cus_2", *c.ExternalCustomerRef)
	assert.Equal(t, 1, customers.Len())
}

func TestReconcileNewCheckout_RejectsEmptyArguments(t *testing.T) {
	r := billing.NewReconciler(memory.NewCustomers(), new(gwmocks.Gateway), nil, zap.NewNop())
	ctx := context.Background()

	_, err := r.ReconcileNewCheckout(ctx, "", "cus_1", "sub_1", model.MembershipPro)
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
	_, err = r.ReconcileNewCheckout(ctx, "u1", "", "sub_1", model.MembershipPro)
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
	_, err = r.ReconcileNewCheckout(ctx, "u1", "cus_1", "", model.MembershipPro)
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
	_, err = r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", "gold")
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
}

func TestReconcileStatusChange_Downgrade(t *testing.T) {
	ctx := context.Background()
	customers := memory.NewCustomers()
	gw := new(gwmocks.Gateway)
	gw.On("RetrieveSubscription", mock.Anything, "sub_1").Return(subscription("sub_1", "cus_1", "canceled"), nil)

	r := billing.NewReconciler(customers, gw, nil, zap.NewNop())
	before, err := r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)

	after, err := r.ReconcileStatusChange(ctx, "sub_1", "cus_1")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, model.MembershipFree, after.Membership)
	assert.Equal(t, before.Identity, after.Identity)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, *before.ExternalCustomerRef, *after.ExternalCustomerRef)
	assert.Equal(t, *before.ExternalSubscriptionRef, *after.ExternalSubscriptionRef)
	gw.AssertExpectations(t)
}

func TestReconcileStatusChange_UnknownCustomerIsNotAnError(t *testing.T) {
	ctx := context.Background()
	customers := memory.NewCustomers()
	gw := new(gwmocks.Gateway)
	gw.On("RetrieveSubscription", mock.Anything, "sub_9").Return(subscription("sub_9", "cus_9", "active"), nil)
	log, logs := newObservedLogger()

	r := billing.NewReconciler(customers, gw, nil, log)
	c, err := r.ReconcileStatusChange(ctx, "sub_9", "cus_9")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 0, customers.Len())

	warns := logs.FilterMessage("customer not found for external customer ref").All()
	require.Len(t, warns, 1)
	assert.Equal(t, zapcore.WarnLevel, warns[0].Level)
	assert.Equal(t, "cus_9", warns[0].ContextMap()["customer_ref"])
}

func TestReconcileStatusChange_Idempotent(t *testing.T) {
	ctx := context.Background()
	customers := memory.NewCustomers()
	gw := new(gwmocks.Gateway)
	gw.On("RetrieveSubscription", mock.Anything, "sub_1").Return(subscription("sub_1", "cus_1", "past_due"), nil)

	r := billing.NewReconciler(customers, gw, nil, zap.NewNop())
	_, err := r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)

	once, err := r.ReconcileStatusChange(ctx, "sub_1", "cus_1")
	require.NoError(t, err)
	twice, err := r.ReconcileStatusChange(ctx, "sub_1", "cus_1")
	require.NoError(t, err)

	once.UpdatedAt, twice.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, *once, *twice)
	assert.Equal(t, model.MembershipFree, twice.Membership)
	assert.Equal(t, 1, customers.Len())
}

func TestReconcileStatusChange_GatewayErrorPropagates(t *testing.T) {
	ctx := context.Background()
	customers := memory.NewCustomers()
	gw := new(gwmocks.Gateway)
	gw.On("RetrieveSubscription", mock.Anything, "sub_1").
		Return(gateway.Subscription{}, errors.Join(gateway.ErrGateway, errors.New("timeout")))

	r := billing.NewReconciler(customers, gw, nil, zap.NewNop())
	_, err := r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)

	_, err = r.ReconcileStatusChange(ctx, "sub_1", "cus_1")
	assert.ErrorIs(t, err, gateway.ErrGateway)

	c, err := customers.GetByIdentity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPro, c.Membership, "row untouched on gateway failure")
}

func TestReconcileStatusChange_RejectsEmptyArguments(t *testing.T) {
	gw := new(gwmocks.Gateway)
	r := billing.NewReconciler(memory.NewCustomers(), gw, nil, zap.NewNop())

	_, err := r.ReconcileStatusChange(context.Background(), "", "cus_1")
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
	_, err = r.ReconcileStatusChange(context.Background(), "sub_1", " ")
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
	gw.AssertNotCalled(t, "RetrieveSubscription", mock.Anything, mock.Anything)
}

func TestReconcile_PublishesMembershipEvents(t *testing.T) {
	ctx := context.Background()
	gw := new(gwmocks.Gateway)
	gw.On("RetrieveSubscription", mock.Anything, "sub_1").Return(subscription("sub_1", "cus_1", "active"), nil)

	pub := new(mocks.Publisher)
	pub.On("PublishMembershipChange", mock.Anything, mock.MatchedBy(func(ev model.MembershipEvent) bool {
		return ev.Identity == "u1" && ev.Source == billing.SourceCheckout && ev.Membership == model.MembershipPro
	})).Return(nil).Once()
	pub.On("PublishMembershipChange", mock.Anything, mock.MatchedBy(func(ev model.MembershipEvent) bool {
		return ev.Identity == "u1" && ev.Source == billing.SourceStatusChange && ev.ExternalSubscriptionRef == "sub_1"
	})).Return(nil).Once()

	r := billing.NewReconciler(memory.NewCustomers(), gw, pub, zap.NewNop())
	_, err := r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)
	_, err = r.ReconcileStatusChange(ctx, "sub_1", "cus_1")
	require.NoError(t, err)

	pub.AssertExpectations(t)
}

func TestReconcile_PublishFailureIsLoggedOnly(t *testing.T) {
	pub := new(mocks.Publisher)
	pub.On("PublishMembershipChange", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	log, logs := newObservedLogger()

	customers := memory.NewCustomers()
	r := billing.NewReconciler(customers, new(gwmocks.Gateway), pub, log)
	_, err := r.ReconcileNewCheckout(context.Background(), "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)

	assert.Equal(t, 1, customers.Len())
	assert.Equal(t, 1, logs.FilterMessage("publish membership change failed").Len())
}

func TestReconcileNewCheckout_ConcurrentCreateFallsBackToUpdate(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	winner := model.Customer{
		Identity:                "u1",
		Membership:              model.MembershipPro,
		ExternalCustomerRef:     model.StringPtr("cus_1"),
		ExternalSubscriptionRef: model.StringPtr("sub_1"),
		CreatedAt:               created,
	}

	customers := new(repomocks.CustomersRepository)
	customers.On("GetByIdentity", mock.Anything, "u1").Return(nil, nil).Once()
	customers.On("Create", mock.Anything, mock.AnythingOfType("model.Customer")).
		Return(model.Customer{}, fmt.Errorf("create customer u1: %w", repository.ErrConflict)).Once()
	customers.On("UpdateByIdentity", mock.Anything, "u1", mock.MatchedBy(func(p model.CustomerPatch) bool {
		return p.Membership != nil && *p.Membership == model.MembershipPro &&
			p.ExternalCustomerRef != nil && *p.ExternalCustomerRef == "cus_1" &&
			p.ExternalSubscriptionRef != nil && *p.ExternalSubscriptionRef == "sub_1"
	})).Return(winner, nil).Once()

	r := billing.NewReconciler(customers, new(gwmocks.Gateway), nil, zap.NewNop())
	c, err := r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)
	assert.Equal(t, winner, c)

	customers.AssertExpectations(t)
}

func TestReconcileNewCheckout_ConflictThenUpdateFailureIsReturned(t *testing.T) {
	customers := new(repomocks.CustomersRepository)
	customers.On("GetByIdentity", mock.Anything, "u1").Return(nil, nil)
	customers.On("Create", mock.Anything, mock.Anything).Return(model.Customer{}, repository.ErrConflict)
	customers.On("UpdateByIdentity", mock.Anything, "u1", mock.Anything).Return(model.Customer{}, repository.ErrNotFound)

	r := billing.NewReconciler(customers, new(gwmocks.Gateway), nil, zap.NewNop())
	_, err := r.ReconcileNewCheckout(context.Background(), "u1", "cus_1", "sub_1", model.MembershipPro)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReconcile_SlowPublisherIsBounded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := new(mocks.Publisher)
	pub.On("PublishMembershipChange", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			pubCtx := args.Get(0).(context.Context)
			_, ok := pubCtx.Deadline()
			assert.True(t, ok)
			<-pubCtx.Done()
		}).
		Return(context.DeadlineExceeded)
	log, logs := newObservedLogger()

	customers := memory.NewCustomers()
	r := billing.NewReconciler(customers, new(gwmocks.Gateway), pub, log, billing.WithPublishTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := r.ReconcileNewCheckout(ctx, "u1", "cus_1", "sub_1", model.MembershipPro)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, customers.Len())
	assert.Equal(t, 1, logs.FilterMessage("publish membership change failed").Len())
}
