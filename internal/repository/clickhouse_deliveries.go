package repository

import (
	"context"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmoiron/sqlx"
)

// DeliveriesRepository appends webhook deliveries to the audit log.
type DeliveriesRepository interface {
	Record(ctx context.Context, d model.WebhookDelivery) error
}

type chDeliveriesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

// NewCHDeliveriesRepository returns a ClickHouse-backed log, or a no-op log when ch is nil.
func NewCHDeliveriesRepository(ch *sqlx.DB) DeliveriesRepository {
	if ch == nil {
		return NopDeliveries{}
	}
	return &chDeliveriesRepository{ch: ch}
}

func (r *chDeliveriesRepository) Record(ctx context.Context, d model.WebhookDelivery) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO webhook_deliveries
		    (id, event_id, event_type, outcome, error, duration_ms, received_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.EventID, d.EventType, d.Outcome.String(), d.Error, d.DurationMs, d.ReceivedAt.UTC())
	return err
}

// NopDeliveries discards deliveries; used when ClickHouse is not configured.
type NopDeliveries struct{}

func (NopDeliveries) Record(context.Context, model.WebhookDelivery) error { return nil }
