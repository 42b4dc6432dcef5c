package settlement

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/givefi/givefi-backend/internal/disbursements"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type stubAllocator struct {
	calls []disbursements.AllocateInput
	errs  []error
}

func (s *stubAllocator) Allocate(ctx context.Context, input disbursements.AllocateInput) (*disbursements.AllocationResult, error) {
	s.calls = append(s.calls, input)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &disbursements.AllocationResult{UnallocatedSurplus: decimal.Zero}, nil
}

func newTestConsumer(t *testing.T, alloc *stubAllocator) *Consumer {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	consumer, err := NewConsumer(alloc, &pubsub.Subscriber{}, logg)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	consumer.backoff = time.Millisecond
	return consumer
}

func buildMessage(t *testing.T, event settlementEvent) *pubsub.Message {
	t.Helper()

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &pubsub.Message{ID: "msg-1", Data: data}
}

func TestConsumerAllocatesSettlement(t *testing.T) {
	alloc := &stubAllocator{}
	consumer := newTestConsumer(t, alloc)

	msg := buildMessage(t, settlementEvent{
		CauseID:         "cause-water",
		Amount:          "700",
		DisbursementRef: "tx1",
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack result, got %+v", result)
	}
	if len(alloc.calls) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(alloc.calls))
	}
	input := alloc.calls[0]
	if input.CauseID != "cause-water" || input.DisbursementRef != "tx1" {
		t.Fatalf("unexpected allocation input: %+v", input)
	}
	if !input.Amount.Equal(decimal.RequireFromString("700")) {
		t.Fatalf("amount mismatch: %s", input.Amount)
	}
}

func TestConsumerRetriesTransientWithSameRef(t *testing.T) {
	alloc := &stubAllocator{
		errs: []error{
			pkgerrors.New(pkgerrors.CodeConflict, "allocation already in progress for cause"),
		},
	}
	consumer := newTestConsumer(t, alloc)

	msg := buildMessage(t, settlementEvent{
		CauseID:         "cause-water",
		Amount:          "700",
		DisbursementRef: "tx1",
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack after retry, got %+v", result)
	}
	if len(alloc.calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(alloc.calls))
	}
	if alloc.calls[0].DisbursementRef != alloc.calls[1].DisbursementRef {
		t.Fatal("retries must reuse the original disbursement ref")
	}
}

func TestConsumerNacksWhenRetriesExhausted(t *testing.T) {
	transient := pkgerrors.New(pkgerrors.CodePersistence, "store unavailable")
	alloc := &stubAllocator{errs: []error{transient, transient, transient, transient}}
	consumer := newTestConsumer(t, alloc)

	msg := buildMessage(t, settlementEvent{
		CauseID:         "cause-water",
		Amount:          "700",
		DisbursementRef: "tx1",
	})

	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack for exhausted transient failure, got %+v", result)
	}
}

func TestConsumerAcksPoisonMessages(t *testing.T) {
	cases := []struct {
		name string
		msg  *pubsub.Message
	}{
		{name: "invalid json", msg: &pubsub.Message{ID: "msg-1", Data: []byte("not json")}},
		{name: "missing ref", msg: func() *pubsub.Message {
			data, _ := json.Marshal(settlementEvent{CauseID: "cause-water", Amount: "10"})
			return &pubsub.Message{ID: "msg-1", Data: data}
		}()},
		{name: "bad amount", msg: func() *pubsub.Message {
			data, _ := json.Marshal(settlementEvent{CauseID: "cause-water", Amount: "ten", DisbursementRef: "tx1"})
			return &pubsub.Message{ID: "msg-1", Data: data}
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alloc := &stubAllocator{}
			consumer := newTestConsumer(t, alloc)

			result := consumer.process(context.Background(), tc.msg)
			if !result.ack || result.nack {
				t.Fatalf("poison messages must ack, got %+v", result)
			}
			if len(alloc.calls) != 0 {
				t.Fatal("poison messages must not reach the allocator")
			}
		})
	}
}

func TestConsumerAcksNonRetryableAllocationError(t *testing.T) {
	alloc := &stubAllocator{
		errs: []error{pkgerrors.New(pkgerrors.CodeNotFound, "cause not found")},
	}
	consumer := newTestConsumer(t, alloc)

	msg := buildMessage(t, settlementEvent{
		CauseID:         "cause-missing",
		Amount:          "700",
		DisbursementRef: "tx1",
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("non-retryable failure must ack, got %+v", result)
	}
	if len(alloc.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(alloc.calls))
	}
}
