package mocks

import (
	"context"

	"github.com/jmehdipour/prompt-vault/internal/gateway"
	"github.com/stretchr/testify/mock"
)

type Gateway struct {
	mock.Mock
}

func (m *Gateway) RetrieveSubscription(ctx context.Context, subscriptionRef string) (gateway.Subscription, error) {
	args := m.Called(ctx, subscriptionRef)
	return args.Get(0).(gateway.Subscription), args.Error(1)
}

func (m *Gateway) VerifyEventSignature(payload []byte, header, secret string) (gateway.Event, error) {
	args := m.Called(payload, header, secret)
	return args.Get(0).(gateway.Event), args.Error(1)
}

func (m *Gateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (gateway.CheckoutSession, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.CheckoutSession), args.Error(1)
}
