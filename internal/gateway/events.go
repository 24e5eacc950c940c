package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExpandableID decodes a Stripe reference that is either a bare id or an
// expanded object carrying an "id" field.
type ExpandableID string

func (e *ExpandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = ExpandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("expandable id: %w", err)
	}
	*e = ExpandableID(obj.ID)
	return nil
}

func (e ExpandableID) String() string { return string(e) }

// CheckoutSessionObject is the subset of a checkout.session event object the
// billing flow reads.
type CheckoutSessionObject struct {
	ID                string       `json:"id"`
	Mode              string       `json:"mode"`
	ClientReferenceID string       `json:"client_reference_id"`
	Customer          ExpandableID `json:"customer"`
	Subscription      ExpandableID `json:"subscription"`
}

// SubscriptionObject is the subset of a customer.subscription event object the
// billing flow reads. Status is informational; reconciliation re-fetches it.
type SubscriptionObject struct {
	ID       string       `json:"id"`
	Customer ExpandableID `json:"customer"`
	Status   string       `json:"status"`
}

func DecodeCheckoutSession(ev Event) (CheckoutSessionObject, error) {
	var obj CheckoutSessionObject
	if err := json.Unmarshal(ev.Data, &obj); err != nil {
		return CheckoutSessionObject{}, fmt.Errorf("decode checkout session %s: %w", ev.ID, err)
	}
	return obj, nil
}

func DecodeSubscription(ev Event) (SubscriptionObject, error) {
	var obj SubscriptionObject
	if err := json.Unmarshal(ev.Data, &obj); err != nil {
		return SubscriptionObject{}, fmt.Errorf("decode subscription %s: %w", ev.ID, err)
	}
	return obj, nil
}
