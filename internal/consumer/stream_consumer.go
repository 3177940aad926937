package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"carewatch-alert/internal/config"
	"carewatch-alert/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReadingEvaluator is the engine entry point the consumer drives.
type ReadingEvaluator interface {
	Evaluate(ctx context.Context, reading models.VitalSignReading) ([]models.Alert, error)
}

// StreamConsumer reads newly recorded vital-sign readings off a Redis Stream
// consumer group and runs each through the evaluator. The producer (the
// record-vital-sign use case) publishes after the reading is durably stored,
// so the consumer only evaluates; it never persists readings. A reading
// whose evaluation fails is left pending and retried by the pending sweep
// on the next start. Re-evaluation is safe thanks to the cooldown dedup
// guard.
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewStreamConsumer creates the vital-sign reading consumer.
func NewStreamConsumer(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Start creates the consumer group and runs the consume loop until the
// context is cancelled.
func (c *StreamConsumer) Start(ctx context.Context, evaluator ReadingEvaluator) error {
	if err := c.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	if err := c.consumePending(ctx, evaluator); err != nil {
		return fmt.Errorf("failed to sweep pending readings: %w", err)
	}

	c.logger.Info("Vital-sign stream consumer started",
		zap.String("stream", c.config.Engine.Stream),
		zap.String("consumer_group", c.config.Engine.ConsumerGroup),
		zap.String("consumer_name", c.config.Engine.ConsumerName),
	)

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consumeBatch(ctx, evaluator); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("Failed to consume vital-sign stream",
					zap.Error(err),
					zap.Duration("backoff", backoff),
				)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
				}
				continue
			}
			backoff = time.Second
		}
	}
}

// ensureConsumerGroup creates the group, tolerating an already existing one.
func (c *StreamConsumer) ensureConsumerGroup(ctx context.Context) error {
	err := c.redisClient.XGroupCreateMkStream(ctx,
		c.config.Engine.Stream,
		c.config.Engine.ConsumerGroup,
		"0",
	).Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// consumePending re-consumes this consumer's unacked entries from earlier
// runs. Reading with an explicit cursor instead of ">" returns pending
// entries; the cursor always advances past the batch, so an entry that
// keeps failing is logged and left for the next start rather than looping.
func (c *StreamConsumer) consumePending(ctx context.Context, evaluator ReadingEvaluator) error {
	cursor := "0"
	for {
		streams, err := c.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.config.Engine.ConsumerGroup,
			Consumer: c.config.Engine.ConsumerName,
			Streams:  []string{c.config.Engine.Stream, cursor},
			Count:    c.config.Engine.BatchSize,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				return nil
			}
			return fmt.Errorf("failed to read pending entries: %w", err)
		}

		drained := true
		for _, stream := range streams {
			for _, message := range stream.Messages {
				drained = false
				cursor = message.ID
				c.handleMessage(ctx, evaluator, message)
			}
		}
		if drained {
			return nil
		}
	}
}

// consumeBatch reads one batch of readings and evaluates them.
func (c *StreamConsumer) consumeBatch(ctx context.Context, evaluator ReadingEvaluator) error {
	streams, err := c.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.Engine.ConsumerGroup,
		Consumer: c.config.Engine.ConsumerName,
		Streams:  []string{c.config.Engine.Stream, ">"},
		Count:    c.config.Engine.BatchSize,
		Block:    5 * time.Second,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			c.handleMessage(ctx, evaluator, message)
		}
	}
	return nil
}

// handleMessage evaluates one entry and acks it on success. A failed entry
// stays pending; the startup sweep retries it and the dedup guard keeps
// the retry idempotent.
func (c *StreamConsumer) handleMessage(ctx context.Context, evaluator ReadingEvaluator, message redis.XMessage) {
	if err := c.processMessage(ctx, evaluator, message); err != nil {
		c.logger.Error("Failed to process vital-sign reading",
			zap.String("message_id", message.ID),
			zap.Error(err),
		)
		return
	}
	if err := c.redisClient.XAck(ctx,
		c.config.Engine.Stream,
		c.config.Engine.ConsumerGroup,
		message.ID,
	).Err(); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("message_id", message.ID),
			zap.Error(err),
		)
	}
}

// processMessage decodes one stream entry and evaluates the reading.
func (c *StreamConsumer) processMessage(ctx context.Context, evaluator ReadingEvaluator, message redis.XMessage) error {
	payload, ok := message.Values["data"].(string)
	if !ok {
		return fmt.Errorf("message %s has no data field", message.ID)
	}

	var reading models.VitalSignReading
	if err := json.Unmarshal([]byte(payload), &reading); err != nil {
		return fmt.Errorf("failed to decode vital-sign reading: %w", err)
	}
	if reading.ReadingID == "" || reading.PatientID == "" {
		return fmt.Errorf("reading is missing reading_id or patient_id")
	}

	alerts, err := evaluator.Evaluate(ctx, reading)
	if err != nil {
		return fmt.Errorf("failed to evaluate reading %s: %w", reading.ReadingID, err)
	}

	c.logger.Debug("Vital-sign reading evaluated",
		zap.String("reading_id", reading.ReadingID),
		zap.String("patient_id", reading.PatientID),
		zap.Int("alerts_created", len(alerts)),
	)
	return nil
}
