// Package memory holds in-process implementations of the repository interfaces
// used by tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
)

type Customers struct {
	mu   sync.Mutex
	rows map[string]model.Customer
}

func NewCustomers() *Customers {
	return &Customers{rows: make(map[string]model.Customer)}
}

var _ repository.CustomersRepository = (*Customers)(nil)

func (s *Customers) Create(_ context.Context, c model.Customer) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[c.Identity]; ok {
		return model.Customer{}, fmt.Errorf("create customer %s: %w", c.Identity, repository.ErrConflict)
	}
	if c.Membership == "" {
		c.Membership = model.MembershipFree
	}
	if !c.Membership.Valid() {
		return model.Customer{}, fmt.Errorf("create customer %s: invalid membership %q", c.Identity, c.Membership)
	}
	ts := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	}
	c.UpdatedAt = ts
	c.ExternalCustomerRef = clonePtr(c.ExternalCustomerRef)
	c.ExternalSubscriptionRef = clonePtr(c.ExternalSubscriptionRef)

	s.rows[c.Identity] = c
	return copyCustomer(c), nil
}

func (s *Customers) GetByIdentity(_ context.Context, identity string) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.rows[identity]
	if !ok {
		return nil, nil
	}
	out := copyCustomer(c)
	return &out, nil
}

func (s *Customers) UpdateByIdentity(_ context.Context, identity string, patch model.CustomerPatch) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.rows[identity]
	if !ok {
		return model.Customer{}, fmt.Errorf("update customer %s: %w", identity, repository.ErrNotFound)
	}
	return s.apply(c, patch), nil
}

func (s *Customers) UpdateByExternalCustomerRef(_ context.Context, ref string, patch model.CustomerPatch) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		match model.Customer
		found bool
	)
	for _, c := range s.rows {
		if c.ExternalCustomerRef == nil || *c.ExternalCustomerRef != ref {
			continue
		}
		// oldest row wins, matching the SQL store
		if !found || c.CreatedAt.Before(match.CreatedAt) {
			match, found = c, true
		}
	}
	if !found {
		return nil, nil
	}
	out := s.apply(match, patch)
	return &out, nil
}

// Len reports the number of stored customers.
func (s *Customers) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Customers) apply(c model.Customer, patch model.CustomerPatch) model.Customer {
	patch.Apply(&c)
	c.UpdatedAt = time.Now().UTC()
	s.rows[c.Identity] = c
	return copyCustomer(c)
}

func copyCustomer(c model.Customer) model.Customer {
	c.ExternalCustomerRef = clonePtr(c.ExternalCustomerRef)
	c.ExternalSubscriptionRef = clonePtr(c.ExternalSubscriptionRef)
	return c
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
