// Package notify tells the service provider about new appointments by
// consuming documents.created.v1 events relayed from the store outbox.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubike/pubike/libs/kafkax"
	otelx "github.com/pubike/pubike/libs/otel"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader      *kafka.Reader
	logger      *slog.Logger
	inbox       Inbox
	handler     Handler
	maxAttempts int
	retryDelay  time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
	// MaxAttempts bounds handler retries per message; RetryDelay grows linearly.
	MaxAttempts int
	RetryDelay  time.Duration
}

func NewConsumer(logger *slog.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:      reader,
		logger:      logger,
		inbox:       inbox,
		handler:     handler,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
	}
}

// Run commits each offset only after its message was handled, found to be a
// duplicate, or ran out of attempts.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(time.Second)
			continue
		}
		c.handle(ctx, msg)
		if ctx.Err() != nil {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	for attempt := 1; ; attempt++ {
		err := c.process(ctx, msg)
		if err == nil {
			return
		}
		meta := kafkax.ExtractEventMeta(msg)
		if attempt >= c.maxAttempts {
			c.logger.Error("giving up on event", "err", err, "event_id", meta.EventID, "attempts", attempt)
			return
		}
		c.logger.Warn("event handling failed; retrying", "err", err, "event_id", meta.EventID, "attempt", attempt)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		}
	}
}

// process handles msg once. A failed handler leaves no inbox entry behind.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	ctx = kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otelx.Tracer("kafka").Start(ctx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	ok, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("inbox record: %w", err)
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}
	if err := c.handler(ctx, msg); err != nil {
		span.RecordError(err)
		if ferr := c.inbox.Forget(ctx, meta.EventID); ferr != nil {
			c.logger.Error("inbox forget failed", "err", ferr, "event_id", meta.EventID)
		}
		return err
	}
	return nil
}
