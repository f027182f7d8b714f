package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/banking/sar-intelligence/internal/service"
	"go.uber.org/zap"
)

// ScoringConsumer listens for SAR and transaction events published by the
// case-management platform and triggers the corresponding scoring runs.
type ScoringConsumer struct {
	consumerGroup    sarama.ConsumerGroup
	scoringService   *service.ScoringService
	sarTopic         string
	transactionTopic string
	logger           *zap.Logger
}

func NewScoringConsumer(cfg config.KafkaConfig, scoringService *service.ScoringService, logger *zap.Logger) (*ScoringConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &ScoringConsumer{
		consumerGroup:    consumerGroup,
		scoringService:   scoringService,
		sarTopic:         cfg.SARTopic,
		transactionTopic: cfg.TransactionTopic,
		logger:           logger,
	}, nil
}

func (c *ScoringConsumer) Start(ctx context.Context) error {
	handler := &scoringConsumerHandler{
		scoringService:   c.scoringService,
		sarTopic:         c.sarTopic,
		transactionTopic: c.transactionTopic,
		logger:           c.logger,
	}

	topics := []string{c.sarTopic, c.transactionTopic}
	for {
		if err := c.consumerGroup.Consume(ctx, topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil // Context canceled
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			time.Sleep(time.Second * 5) // Retry backoff
		}
	}
}

func (c *ScoringConsumer) Close() error {
	return c.consumerGroup.Close()
}

type scoringConsumerHandler struct {
	scoringService   *service.ScoringService
	sarTopic         string
	transactionTopic string
	logger           *zap.Logger
}

// sarEvent announces a SAR draft ready for scoring
type sarEvent struct {
	SARRef    string `json:"sar_ref"`
	EventType string `json:"event_type"`
}

// transactionEvent announces new transaction activity on a case
type transactionEvent struct {
	CaseRef   string `json:"case_ref"`
	EventType string `json:"event_type"`
}

func (h *scoringConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *scoringConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }
func (h *scoringConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.processMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *scoringConsumerHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	switch msg.Topic {
	case h.sarTopic:
		h.processSAREvent(ctx, msg)
	case h.transactionTopic:
		h.processTransactionEvent(ctx, msg)
	default:
		h.logger.Warn("Message on unexpected topic", zap.String("topic", msg.Topic))
	}
}

func (h *scoringConsumerHandler) processSAREvent(ctx context.Context, msg *sarama.ConsumerMessage) {
	var event sarEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal sar event", zap.Error(err))
		return // Skip malformed
	}
	if event.SARRef == "" {
		h.logger.Warn("SAR event without sar_ref, skipping")
		return
	}

	// A new or updated SAR gets the full narrative pipeline: typology
	// detection first, then CQI (which internally re-simulates).
	h.withRetry(ctx, "typology detection", event.SARRef, func(ctx context.Context) error {
		_, err := h.scoringService.DetectTypologies(ctx, event.SARRef)
		return err
	})
	h.withRetry(ctx, "cqi calculation", event.SARRef, func(ctx context.Context) error {
		_, err := h.scoringService.CalculateCQI(ctx, event.SARRef)
		return err
	})
}

func (h *scoringConsumerHandler) processTransactionEvent(ctx context.Context, msg *sarama.ConsumerMessage) {
	var event transactionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal transaction event", zap.Error(err))
		return
	}
	if event.CaseRef == "" {
		h.logger.Warn("Transaction event without case_ref, skipping")
		return
	}

	h.withRetry(ctx, "risk analysis", event.CaseRef, func(ctx context.Context) error {
		_, err := h.scoringService.AnalyzeCaseRisk(ctx, event.CaseRef)
		return err
	})
}

// withRetry runs a scoring operation with a small backoff. Missing referents
// are not retried; the upstream service may simply publish before our read
// model catches up, and the next event will cover it.
func (h *scoringConsumerHandler) withRetry(ctx context.Context, op, ref string, fn func(context.Context) error) {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		err := fn(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("Referent not found, skipping event",
				zap.String("operation", op),
				zap.String("ref", ref),
			)
			return
		}
		h.logger.Error("Failed scoring operation",
			zap.String("operation", op),
			zap.String("ref", ref),
			zap.Error(err),
			zap.Int("retry", i+1),
		)
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * time.Second) // Simple backoff
			continue
		}
		h.logger.Error("Dropping event after retries",
			zap.String("operation", op),
			zap.String("ref", ref),
		)
	}
}
