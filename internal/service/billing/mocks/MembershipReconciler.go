package mocks

import (
	"context"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MembershipReconciler struct {
	mock.Mock
}

func (m *MembershipReconciler) ReconcileStatusChange(ctx context.Context, subscriptionRef, customerRef string) (*model.Customer, error) {
	args := m.Called(ctx, subscriptionRef, customerRef)
	c, _ := args.Get(0).(*model.Customer)
	return c, args.Error(1)
}

func (m *MembershipReconciler) ReconcileNewCheckout(ctx context.Context, identity, customerRef, subscriptionRef string, membership model.Membership) (model.Customer, error) {
	args := m.Called(ctx, identity, customerRef, subscriptionRef, membership)
	return args.Get(0).(model.Customer), args.Error(1)
}
