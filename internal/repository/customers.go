package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmoiron/sqlx"
)

// CustomersRepository persists billing/membership state keyed by identity.
type CustomersRepository interface {
	// Create inserts a new customer; ErrConflict if the identity already exists.
	Create(ctx context.Context, c model.Customer) (model.Customer, error)
	// GetByIdentity returns (nil, nil) when the identity has no customer row.
	GetByIdentity(ctx context.Context, identity string) (*model.Customer, error)
	// UpdateByIdentity applies patch; ErrNotFound if no row matches.
	UpdateByIdentity(ctx context.Context, identity string, patch model.CustomerPatch) (model.Customer, error)
	// UpdateByExternalCustomerRef applies patch to the customer bound to ref.
	// It returns (nil, nil) and writes nothing when no row matches.
	UpdateByExternalCustomerRef(ctx context.Context, ref string, patch model.CustomerPatch) (*model.Customer, error)
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerColumns = `user_id, membership, external_customer_ref, external_subscription_ref, created_at, updated_at`

func (r *CustomersRepositoryImpl) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	if c.Membership == "" {
		c.Membership = model.MembershipFree
	}
	if !c.Membership.Valid() {
		return model.Customer{}, fmt.Errorf("create customer %s: invalid membership %q", c.Identity, c.Membership)
	}
	ts := now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	} else {
		c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Microsecond)
	}
	c.UpdatedAt = ts

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		existing, err := getCustomer(ctx, tx, `user_id = ?`, c.Identity)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO customers (`+customerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.Identity, c.Membership.String(), c.ExternalCustomerRef, c.ExternalSubscriptionRef, c.CreatedAt, c.UpdatedAt)
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	})
	if err != nil {
		return model.Customer{}, fmt.Errorf("create customer %s: %w", c.Identity, err)
	}
	return c, nil
}

func (r *CustomersRepositoryImpl) GetByIdentity(ctx context.Context, identity string) (*model.Customer, error) {
	c, err := getCustomer(ctx, r.db, `user_id = ?`, identity)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", identity, err)
	}
	return c, nil
}

func (r *CustomersRepositoryImpl) UpdateByIdentity(ctx context.Context, identity string, patch model.CustomerPatch) (model.Customer, error) {
	var out model.Customer
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		c, err := getCustomer(ctx, tx, `user_id = ?`, identity)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrNotFound
		}
		if err := updateCustomer(ctx, tx, c, patch); err != nil {
			return err
		}
		out = *c
		return nil
	})
	if err != nil {
		return model.Customer{}, fmt.Errorf("update customer %s: %w", identity, err)
	}
	return out, nil
}

func (r *CustomersRepositoryImpl) UpdateByExternalCustomerRef(ctx context.Context, ref string, patch model.CustomerPatch) (*model.Customer, error) {
	var out *model.Customer
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		c, err := getCustomer(ctx, tx, `external_customer_ref = ?`, ref)
		if err != nil || c == nil {
			return err
		}
		if err := updateCustomer(ctx, tx, c, patch); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update customer by external ref %s: %w", ref, err)
	}
	return out, nil
}

// getCustomer returns the first row matching where, or (nil, nil).
func getCustomer(ctx context.Context, q sqlx.QueryerContext, where string, arg any) (*model.Customer, error) {
	var c model.Customer
	err := sqlx.GetContext(ctx, q, &c, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE `+where+`
		 ORDER BY created_at ASC
		 LIMIT 1
	`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// updateCustomer writes the patched columns of c (looked up inside tx) and
// refreshes updated_at. c is updated in place to the persisted state.
func updateCustomer(ctx context.Context, tx *sqlx.Tx, c *model.Customer, patch model.CustomerPatch) error {
	patch.Apply(c)
	c.UpdatedAt = now()

	sets := []string{"updated_at = ?"}
	args := []any{c.UpdatedAt}
	if patch.Membership != nil {
		sets = append(sets, "membership = ?")
		args = append(args, c.Membership.String())
	}
	if patch.ExternalCustomerRef != nil {
		sets = append(sets, "external_customer_ref = ?")
		args = append(args, *c.ExternalCustomerRef)
	}
	if patch.ExternalSubscriptionRef != nil {
		sets = append(sets, "external_subscription_ref = ?")
		args = append(args, *c.ExternalSubscriptionRef)
	}
	args = append(args, c.Identity)

	_, err := tx.ExecContext(ctx, `UPDATE customers SET `+strings.Join(sets, ", ")+` WHERE user_id = ?`, args...)
	return err
}
