package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration // default 1s
	BatchTimeout time.Duration // default 10ms
	MaxAttempts  int           // default 3
}

type Message = kafka.Message

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes membership changes, keyed by identity so every change
// for one identity lands on the same partition in order.
type Producer struct {
	w messageWriter
}

func NewProducerFromConfig(c Config) *Producer {
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = time.Second
	}
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 10 * time.Millisecond
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           wt,
		BatchTimeout:           bt,
		MaxAttempts:            attempts,
		AllowAutoTopicCreation: true,
	}
	return &Producer{w: w}
}

func (p *Producer) PublishMembershipChange(ctx context.Context, ev model.MembershipEvent) error {
	msg, err := EncodeMembershipEvent(ev)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish membership change %s: %w", ev.Identity, err)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

// EncodeMembershipEvent builds the wire message for ev: key is the identity,
// value is the JSON document and the source travels as a header.
func EncodeMembershipEvent(ev model.MembershipEvent) (Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return Message{}, fmt.Errorf("encode membership event: %w", err)
	}
	return Message{
		Key:   []byte(ev.Identity),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(ev.Source)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}, nil
}
