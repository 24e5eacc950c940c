package model

import (
	"time"
)

type Membership string

const (
	MembershipFree Membership = "free"
	MembershipPro  Membership = "pro"
)

func (m Membership) String() string { return string(m) }

func (m Membership) Valid() bool {
	return m == MembershipFree || m == MembershipPro
}

// Customer is the billing/membership record of one identity.
type Customer struct {
	Identity                string     `db:"user_id"                   json:"identity"`
	Membership              Membership `db:"membership"                json:"membership"`
	ExternalCustomerRef     *string    `db:"external_customer_ref"     json:"external_customer_ref,omitempty"`     // nullable
	ExternalSubscriptionRef *string    `db:"external_subscription_ref" json:"external_subscription_ref,omitempty"` // nullable
	CreatedAt               time.Time  `db:"created_at"                json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at"                json:"updated_at"`
}

// CustomerPatch is a partial update; nil fields are left unchanged.
type CustomerPatch struct {
	Membership              *Membership
	ExternalCustomerRef     *string
	ExternalSubscriptionRef *string
}

// Apply copies the set fields of p onto c.
func (p CustomerPatch) Apply(c *Customer) {
	if p.Membership != nil {
		c.Membership = *p.Membership
	}
	if p.ExternalCustomerRef != nil {
		c.ExternalCustomerRef = StringPtr(*p.ExternalCustomerRef)
	}
	if p.ExternalSubscriptionRef != nil {
		c.ExternalSubscriptionRef = StringPtr(*p.ExternalSubscriptionRef)
	}
}

func StringPtr(s string) *string { return &s }

func MembershipPtr(m Membership) *Membership { return &m }
