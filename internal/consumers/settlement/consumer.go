package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/givefi/givefi-backend/internal/disbursements"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
)

// settlementEvent is the payload published when a settlement payment for a
// cause lands on the ledger. Amount is an exact decimal string.
type settlementEvent struct {
	CauseID         string `json:"cause_id"`
	Amount          string `json:"amount"`
	DisbursementRef string `json:"disbursement_ref"`
}

type allocator interface {
	Allocate(ctx context.Context, input disbursements.AllocateInput) (*disbursements.AllocationResult, error)
}

// Consumer feeds settlement payments into the allocator. Transient failures
// retry with the same disbursement ref, so a redelivered or retried message
// can never double-credit a donation.
type Consumer struct {
	allocator    allocator
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	maxRetries   uint64
	backoff      time.Duration
}

// NewConsumer wires the settlement consumer.
func NewConsumer(alloc allocator, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if alloc == nil {
		return nil, errors.New("allocator is required")
	}
	if subscription == nil {
		return nil, errors.New("settlement subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		allocator:    alloc,
		subscription: subscription,
		logg:         logg,
		maxRetries:   defaultMaxRetries,
		backoff:      defaultInitialBackoff,
	}, nil
}

// Run processes settlement notifications until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	var event settlementEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode settlement event", err)
		return processResult{ack: true}
	}

	if strings.TrimSpace(event.DisbursementRef) == "" {
		c.logg.Error(logCtx, "settlement event missing disbursement ref", nil)
		return processResult{ack: true}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(event.Amount))
	if err != nil {
		c.logg.Error(logCtx, fmt.Sprintf("invalid settlement amount %q", event.Amount), err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithCauseID(logCtx, event.CauseID)
	logCtx = c.logg.WithDisbursementRef(logCtx, event.DisbursementRef)

	input := disbursements.AllocateInput{
		CauseID:         event.CauseID,
		Amount:          amount,
		DisbursementRef: event.DisbursementRef,
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err = retry.Do(logCtx, backoff, func(ctx context.Context) error {
		_, allocErr := c.allocator.Allocate(ctx, input)
		if allocErr == nil {
			return nil
		}
		if pkgerrors.Retryable(allocErr) {
			return retry.RetryableError(allocErr)
		}
		return allocErr
	})
	if err != nil {
		c.logg.Error(logCtx, "settlement allocation failed", err)
		if pkgerrors.Retryable(err) {
			// transient after local retries; let Pub/Sub redeliver
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "settlement payment allocated")
	return processResult{ack: true}
}
