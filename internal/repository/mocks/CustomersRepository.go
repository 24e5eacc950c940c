package mocks

import (
	"context"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/stretchr/testify/mock"
)

type CustomersRepository struct {
	mock.Mock
}

func (m *CustomersRepository) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.Customer), args.Error(1)
}

func (m *CustomersRepository) GetByIdentity(ctx context.Context, identity string) (*model.Customer, error) {
	args := m.Called(ctx, identity)
	c, _ := args.Get(0).(*model.Customer)
	return c, args.Error(1)
}

func (m *CustomersRepository) UpdateByIdentity(ctx context.Context, identity string, patch model.CustomerPatch) (model.Customer, error) {
	args := m.Called(ctx, identity, patch)
	return args.Get(0).(model.Customer), args.Error(1)
}

func (m *CustomersRepository) UpdateByExternalCustomerRef(ctx context.Context, ref string, patch model.CustomerPatch) (*model.Customer, error) {
	args := m.Called(ctx, ref, patch)
	c, _ := args.Get(0).(*model.Customer)
	return c, args.Error(1)
}
