package model

import "time"

// MembershipEvent is published after the reconciler writes a Customer row.
type MembershipEvent struct {
	Identity                string     `json:"identity"`
	Membership              Membership `json:"membership"`
	ExternalCustomerRef     string     `json:"external_customer_ref"`
	ExternalSubscriptionRef string     `json:"external_subscription_ref"`
	Source                  string     `json:"source"` // checkout | status_change
	OccurredAt              time.Time  `json:"occurred_at"`
}

type DeliveryOutcome string

const (
	OutcomeRejected   DeliveryOutcome = "rejected"
	OutcomeIgnored    DeliveryOutcome = "ignored"
	OutcomeSkipped    DeliveryOutcome = "skipped"
	OutcomeDispatched DeliveryOutcome = "dispatched"
	OutcomeFailed     DeliveryOutcome = "failed"
)

func (o DeliveryOutcome) String() string { return string(o) }

// WebhookDelivery is one row of the append-only webhook audit log.
type WebhookDelivery struct {
	ID         string          `db:"id"`
	EventID    string          `db:"event_id"`
	EventType  string          `db:"event_type"`
	Outcome    DeliveryOutcome `db:"outcome"`
	Error      string          `db:"error"`
	DurationMs uint32          `db:"duration_ms"`
	ReceivedAt time.Time       `db:"received_at"`
}
