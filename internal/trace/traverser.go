package trace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/givefi/givefi-backend/pkg/config"
	"github.com/givefi/givefi-backend/pkg/enums"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
	"github.com/givefi/givefi-backend/pkg/metrics"
	"github.com/givefi/givefi-backend/pkg/xrpl"
	"go.uber.org/multierr"
)

// LedgerTransactionSource provides per-address transaction history. The
// production implementation is the XRPL JSON-RPC client.
type LedgerTransactionSource interface {
	AccountTransactions(ctx context.Context, address string, limit int) ([]xrpl.AccountTransaction, error)
	HistoryLimit() int
}

// TraceInput configures one bounded traversal. MaxDepth zero falls back to
// the configured default; CurrencyFilter empty keeps every currency.
type TraceInput struct {
	SeedAddress    string         `json:"seed_address"`
	MaxDepth       int            `json:"max_depth"`
	CurrencyFilter enums.Currency `json:"currency_filter"`
}

// TraceWarning records an address whose history could not be fetched. The
// traversal continues without it.
type TraceWarning struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// TraceResult is the consolidated outcome of one traversal.
type TraceResult struct {
	SeedAddress  string             `json:"seed_address"`
	MaxDepth     int                `json:"max_depth"`
	Edges        []ConsolidatedEdge `json:"edges"`
	Warnings     []TraceWarning     `json:"warnings"`
	NodesVisited int                `json:"nodes_visited"`
}

// Traverser walks the payment graph breadth-first from a seed address.
type Traverser struct {
	source  LedgerTransactionSource
	cfg     config.TraceConfig
	logger  *logger.Logger
	metrics *metrics.TraceMetrics
}

// NewTraverser wires a traverser with its ledger source and limits.
func NewTraverser(source LedgerTransactionSource, cfg config.TraceConfig, logg *logger.Logger, m *metrics.TraceMetrics) (*Traverser, error) {
	if source == nil {
		return nil, fmt.Errorf("ledger transaction source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Traverser{source: source, cfg: cfg, logger: logg, metrics: m}, nil
}

// Trace runs a bounded breadth-first traversal. Depth counts dequeues, not
// hops: each address pulled off the queue consumes one unit of the budget,
// so a trace with MaxDepth K inspects at most K addresses. A fetch failure
// for one address yields a warning and zero edges for that address only.
func (t *Traverser) Trace(ctx context.Context, input TraceInput) (*TraceResult, error) {
	start := time.Now()

	seed := strings.TrimSpace(input.SeedAddress)
	if seed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seed address is required")
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = t.cfg.DefaultMaxDepth
	}
	if t.cfg.MaxDepthCeiling > 0 && maxDepth > t.cfg.MaxDepthCeiling {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("max depth %d exceeds ceiling %d", maxDepth, t.cfg.MaxDepthCeiling))
	}

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	ctx = t.logger.WithAddress(ctx, seed)

	var (
		edges    []PaymentEdge
		warnings []TraceWarning
		nodeErrs error

		queue    = []string{seed}
		queued   = map[string]struct{}{seed: {}}
		visited  = map[string]struct{}{}
		dequeues = 0
	)

	limit := t.source.HistoryLimit()

	for len(queue) > 0 && dequeues < maxDepth {
		if ctx.Err() != nil {
			warnings = append(warnings, TraceWarning{Address: queue[0], Reason: ctx.Err().Error()})
			break
		}

		node := queue[0]
		queue = queue[1:]
		dequeues++

		if _, seen := visited[node]; seen {
			continue
		}
		visited[node] = struct{}{}

		txs, err := t.source.AccountTransactions(ctx, node, limit)
		if err != nil {
			warnings = append(warnings, TraceWarning{Address: node, Reason: err.Error()})
			nodeErrs = multierr.Append(nodeErrs, fmt.Errorf("%s: %w", node, err))
			continue
		}

		for _, tx := range txs {
			edge, ok := outgoingEdge(node, tx)
			if !ok {
				continue
			}
			if input.CurrencyFilter != "" && edge.Currency != input.CurrencyFilter {
				continue
			}

			edges = append(edges, edge)

			if _, seen := visited[edge.Receiver]; seen {
				continue
			}
			if _, enqueued := queued[edge.Receiver]; enqueued {
				continue
			}
			queued[edge.Receiver] = struct{}{}
			queue = append(queue, edge.Receiver)
		}
	}

	if nodeErrs != nil {
		t.logger.Warn(ctx, fmt.Sprintf("trace skipped %d unreachable address(es): %v", len(multierr.Errors(nodeErrs)), nodeErrs))
	}

	consolidated := Consolidate(edges)

	if t.metrics != nil {
		t.metrics.ObserveTrace(time.Since(start), len(visited), len(consolidated), len(warnings))
	}

	return &TraceResult{
		SeedAddress:  seed,
		MaxDepth:     maxDepth,
		Edges:        consolidated,
		Warnings:     warnings,
		NodesVisited: len(visited),
	}, nil
}
