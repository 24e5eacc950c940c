package billing

import (
	"github.com/jmehdipour/prompt-vault/internal/model"
)

// MembershipFromStatus maps a processor subscription status to a membership
// tier. Only the exact values active and trialing grant pro; every other
// value, known or not, yields free.
func MembershipFromStatus(status string) model.Membership {
	switch status {
	case "active", "trialing":
		return model.MembershipPro
	default:
		return model.MembershipFree
	}
}
