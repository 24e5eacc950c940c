package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMembership_Valid(t *testing.T) {
	assert.True(t, MembershipFree.Valid())
	assert.True(t, MembershipPro.Valid())
	assert.False(t, Membership("").Valid())
	assert.False(t, Membership("PRO").Valid())
	assert.False(t, Membership("enterprise").Valid())
}

func TestCustomerPatch_Apply(t *testing.T) {
	c := Customer{
		Identity:            "u1",
		Membership:          MembershipFree,
		ExternalCustomerRef: StringPtr("cus_1"),
	}

	CustomerPatch{
		Membership:              MembershipPtr(MembershipPro),
		ExternalSubscriptionRef: StringPtr("sub_1"),
	}.Apply(&c)

	assert.Equal(t, MembershipPro, c.Membership)
	assert.Equal(t, "cus_1", *c.ExternalCustomerRef)
	assert.Equal(t, "sub_1", *c.ExternalSubscriptionRef)
}
