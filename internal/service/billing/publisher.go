package billing

import (
	"context"

	"github.com/jmehdipour/prompt-vault/internal/model"
)

// Publisher announces membership changes to other systems. Delivery is best
// effort: a failed publish never fails the reconciliation that produced it.
type Publisher interface {
	PublishMembershipChange(ctx context.Context, ev model.MembershipEvent) error
}

type NopPublisher struct{}

func (NopPublisher) PublishMembershipChange(context.Context, model.MembershipEvent) error { return nil }
