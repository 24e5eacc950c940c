package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/db"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	"github.com/jmehdipour/prompt-vault/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stores struct {
	customers repository.CustomersRepository
	prompts   repository.PromptsRepository
}

func backends(t *testing.T) map[string]func(t *testing.T) stores {
	t.Helper()
	return map[string]func(t *testing.T) stores{
		"sqlite": func(t *testing.T) stores {
			dbx, err := db.NewSQLiteConnection(filepath.Join(t.TempDir(), "vault.db"), db.SQLOpts{})
			require.NoError(t, err)
			t.Cleanup(func() { _ = dbx.Close() })
			require.NoError(t, db.ApplySchema(context.Background(), dbx, db.DriverSQLite))
			return stores{
				customers: repository.NewCustomersRepository(dbx),
				prompts:   repository.NewPromptsRepository(dbx),
			}
		},
		"memory": func(t *testing.T) stores {
			return stores{customers: memory.NewCustomers(), prompts: memory.NewPrompts()}
		},
	}
}

func TestCustomers(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("create and get", func(t *testing.T) {
				s := open(t)
				created, err := s.customers.Create(ctx, model.Customer{
					Identity:                "user_1",
					Membership:              model.MembershipPro,
					ExternalCustomerRef:     model.StringPtr("cus_1"),
					ExternalSubscriptionRef: model.StringPtr("sub_1"),
				})
				require.NoError(t, err)
				assert.False(t, created.CreatedAt.IsZero())

				got, err := s.customers.GetByIdentity(ctx, "user_1")
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, model.MembershipPro, got.Membership)
				require.NotNil(t, got.ExternalCustomerRef)
				assert.Equal(t, "cus_1", *got.ExternalCustomerRef)
				require.NotNil(t, got.ExternalSubscriptionRef)
				assert.Equal(t, "sub_1", *got.ExternalSubscriptionRef)
			})

			t.Run("default membership is free", func(t *testing.T) {
				s := open(t)
				c, err := s.customers.Create(ctx, model.Customer{Identity: "user_1"})
				require.NoError(t, err)
				assert.Equal(t, model.MembershipFree, c.Membership)
				assert.Nil(t, c.ExternalCustomerRef)
			})

			t.Run("duplicate identity conflicts", func(t *testing.T) {
				s := open(t)
				_, err := s.customers.Create(ctx, model.Customer{Identity: "user_1"})
				require.NoError(t, err)
				_, err = s.customers.Create(ctx, model.Customer{Identity: "user_1"})
				assert.ErrorIs(t, err, repository.ErrConflict)
			})

			t.Run("missing identity", func(t *testing.T) {
				s := open(t)
				got, err := s.customers.GetByIdentity(ctx, "nobody")
				require.NoError(t, err)
				assert.Nil(t, got)

				_, err = s.customers.UpdateByIdentity(ctx, "nobody", model.CustomerPatch{
					Membership: model.MembershipPtr(model.MembershipPro),
				})
				assert.ErrorIs(t, err, repository.ErrNotFound)
			})

			t.Run("update by identity preserves unset fields", func(t *testing.T) {
				s := open(t)
				created, err := s.customers.Create(ctx, model.Customer{
					Identity:            "user_1",
					ExternalCustomerRef: model.StringPtr("cus_1"),
				})
				require.NoError(t, err)

				updated, err := s.customers.UpdateByIdentity(ctx, "user_1", model.CustomerPatch{
					Membership:              model.MembershipPtr(model.MembershipPro),
					ExternalSubscriptionRef: model.StringPtr("sub_9"),
				})
				require.NoError(t, err)
				assert.Equal(t, model.MembershipPro, updated.Membership)
				require.NotNil(t, updated.ExternalCustomerRef)
				assert.Equal(t, "cus_1", *updated.ExternalCustomerRef)
				assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
				assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
			})

			t.Run("update by external ref", func(t *testing.T) {
				s := open(t)
				_, err := s.customers.Create(ctx, model.Customer{
					Identity:                "user_1",
					Membership:              model.MembershipPro,
					ExternalCustomerRef:     model.StringPtr("cus_1"),
					ExternalSubscriptionRef: model.StringPtr("sub_1"),
				})
				require.NoError(t, err)

				updated, err := s.customers.UpdateByExternalCustomerRef(ctx, "cus_1", model.CustomerPatch{
					Membership:              model.MembershipPtr(model.MembershipFree),
					ExternalSubscriptionRef: model.StringPtr("sub_1"),
				})
				require.NoError(t, err)
				require.NotNil(t, updated)
				assert.Equal(t, "user_1", updated.Identity)
				assert.Equal(t, model.MembershipFree, updated.Membership)

				got, err := s.customers.GetByIdentity(ctx, "user_1")
				require.NoError(t, err)
				assert.Equal(t, model.MembershipFree, got.Membership)
			})

			t.Run("update by unknown external ref writes nothing", func(t *testing.T) {
				s := open(t)
				updated, err := s.customers.UpdateByExternalCustomerRef(ctx, "cus_unknown", model.CustomerPatch{
					Membership: model.MembershipPtr(model.MembershipPro),
				})
				require.NoError(t, err)
				assert.Nil(t, updated)

				got, err := s.customers.GetByIdentity(ctx, "cus_unknown")
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("explicit created_at is kept", func(t *testing.T) {
				s := open(t)
				at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
				_, err := s.customers.Create(ctx, model.Customer{Identity: "user_1", CreatedAt: at})
				require.NoError(t, err)

				got, err := s.customers.GetByIdentity(ctx, "user_1")
				require.NoError(t, err)
				assert.True(t, at.Equal(got.CreatedAt), "created_at = %s", got.CreatedAt)
			})
		})
	}
}

func TestPrompts(t *testing.T) {
	in := func(name string) model.PromptInput {
		return model.PromptInput{Name: name, Description: name + " description", Content: name + " content"}
	}

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("create and list newest first", func(t *testing.T) {
				s := open(t)
				first, err := s.prompts.Create(ctx, "alice", in("first"))
				require.NoError(t, err)
				second, err := s.prompts.Create(ctx, "alice", in("second"))
				require.NoError(t, err)
				assert.NotEqual(t, first.ID, second.ID)
				assert.Equal(t, "alice", second.Owner)

				list, err := s.prompts.List(ctx, "alice")
				require.NoError(t, err)
				require.Len(t, list, 2)
				assert.Equal(t, second.ID, list[0].ID)
				assert.Equal(t, first.ID, list[1].ID)
				assert.Equal(t, "second content", list[0].Content)
			})

			t.Run("empty list is not nil", func(t *testing.T) {
				s := open(t)
				list, err := s.prompts.List(ctx, "alice")
				require.NoError(t, err)
				assert.NotNil(t, list)
				assert.Empty(t, list)
			})

			t.Run("update", func(t *testing.T) {
				s := open(t)
				p, err := s.prompts.Create(ctx, "alice", in("draft"))
				require.NoError(t, err)

				updated, err := s.prompts.Update(ctx, "alice", p.ID, in("final"))
				require.NoError(t, err)
				assert.Equal(t, p.ID, updated.ID)
				assert.Equal(t, "final", updated.Name)
				assert.Equal(t, "final content", updated.Content)
				assert.True(t, p.CreatedAt.Equal(updated.CreatedAt))

				list, err := s.prompts.List(ctx, "alice")
				require.NoError(t, err)
				require.Len(t, list, 1)
				assert.Equal(t, "final description", list[0].Description)
			})

			t.Run("delete returns the removed prompt", func(t *testing.T) {
				s := open(t)
				p, err := s.prompts.Create(ctx, "alice", in("gone"))
				require.NoError(t, err)

				deleted, err := s.prompts.Delete(ctx, "alice", p.ID)
				require.NoError(t, err)
				assert.Equal(t, p.ID, deleted.ID)
				assert.Equal(t, "gone", deleted.Name)

				_, err = s.prompts.Delete(ctx, "alice", p.ID)
				assert.ErrorIs(t, err, repository.ErrNotFound)

				list, err := s.prompts.List(ctx, "alice")
				require.NoError(t, err)
				assert.Empty(t, list)
			})

			t.Run("other owners cannot see or touch a prompt", func(t *testing.T) {
				s := open(t)
				p, err := s.prompts.Create(ctx, "alice", in("private"))
				require.NoError(t, err)

				list, err := s.prompts.List(ctx, "bob")
				require.NoError(t, err)
				assert.Empty(t, list)

				_, err = s.prompts.Update(ctx, "bob", p.ID, in("hijacked"))
				assert.ErrorIs(t, err, repository.ErrNotFound)
				_, err = s.prompts.Delete(ctx, "bob", p.ID)
				assert.ErrorIs(t, err, repository.ErrNotFound)

				list, err = s.prompts.List(ctx, "alice")
				require.NoError(t, err)
				require.Len(t, list, 1)
				assert.Equal(t, "private", list[0].Name)
			})

			t.Run("unknown id", func(t *testing.T) {
				s := open(t)
				_, err := s.prompts.Update(ctx, "alice", 4242, in("x"))
				assert.ErrorIs(t, err, repository.ErrNotFound)
			})
		})
	}
}

func TestNopDeliveries(t *testing.T) {
	log := repository.NewCHDeliveriesRepository(nil)
	assert.IsType(t, repository.NopDeliveries{}, log)
	assert.NoError(t, log.Record(context.Background(), model.WebhookDelivery{ID: "x"}))
}
