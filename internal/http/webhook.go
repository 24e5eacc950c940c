package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/gateway"
	"github.com/jmehdipour/prompt-vault/internal/metrics"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	"github.com/jmehdipour/prompt-vault/internal/util"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	webhookBodyLimit      = 1 << 20 // 1 MiB
	stripeSignatureHeader = "Stripe-Signature"
	deliveryRecordTimeout = 2 * time.Second
)

type webhookDeps struct {
	gateway    gateway.Gateway
	events     EventHandler
	deliveries repository.DeliveriesRepository
	secret     string
	log        *zap.Logger
	records    *sync.WaitGroup
}

type webhookAck struct {
	Received bool `json:"received"`
}

// stripeWebhookHandler verifies, filters and dispatches one payment webhook.
// 400 tells the processor not to retry; 500 asks it to redeliver.
func stripeWebhookHandler(d webhookDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		delivery := model.WebhookDelivery{
			ID:         util.NewID(start),
			ReceivedAt: start.UTC(),
		}
		defer func() { d.finish(c.Request().Context(), delivery, start) }()

		reject := func(msg string, err error) error {
			delivery.Outcome = model.OutcomeRejected
			delivery.Error = msg
			d.log.Warn("webhook rejected",
				zap.String("delivery_id", delivery.ID),
				zap.String("reason", msg),
				zap.Error(err))
			return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
		}

		if strings.TrimSpace(d.secret) == "" {
			return reject("webhook secret not configured", nil)
		}

		req := c.Request()
		req.Body = http.MaxBytesReader(c.Response(), req.Body, webhookBodyLimit)
		payload, err := io.ReadAll(req.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return reject("request body too large", err)
			}
			return reject("failed to read request body", err)
		}
		if len(payload) == 0 {
			return reject("empty request body", nil)
		}

		sig := req.Header.Get(stripeSignatureHeader)
		if strings.TrimSpace(sig) == "" {
			return reject("missing signature", nil)
		}

		ev, err := d.gateway.VerifyEventSignature(payload, sig, d.secret)
		if err != nil {
			return reject("invalid signature", err)
		}
		delivery.EventID = ev.ID
		delivery.EventType = ev.Type

		outcome, err := d.events.Handle(req.Context(), ev)
		if err != nil {
			delivery.Outcome = model.OutcomeFailed
			delivery.Error = err.Error()
			d.log.Error("webhook processing failed",
				zap.String("delivery_id", delivery.ID),
				zap.String("event_id", ev.ID),
				zap.String("type", ev.Type),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		}

		delivery.Outcome = outcome
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}
}

// finish counts and times a delivery, then records it in the background so the
// audit insert never holds the response. Audit failures are only logged.
func (d webhookDeps) finish(ctx context.Context, delivery model.WebhookDelivery, start time.Time) {
	elapsed := time.Since(start)
	delivery.DurationMs = uint32(elapsed.Milliseconds())

	eventType := delivery.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	metrics.WebhookEventsTotal.WithLabelValues(eventType, delivery.Outcome.String()).Inc()
	metrics.WebhookDuration.WithLabelValues(eventType).Observe(elapsed.Seconds())

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryRecordTimeout)
	d.records.Add(1)
	go func() {
		defer d.records.Done()
		defer cancel()
		if err := d.deliveries.Record(recordCtx, delivery); err != nil {
			d.log.Warn("record webhook delivery failed",
				zap.String("delivery_id", delivery.ID),
				zap.Error(err))
		}
	}()
}
