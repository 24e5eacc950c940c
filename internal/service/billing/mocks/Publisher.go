package mocks

import (
	"context"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/stretchr/testify/mock"
)

type Publisher struct {
	mock.Mock
}

func (m *Publisher) PublishMembershipChange(ctx context.Context, ev model.MembershipEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
