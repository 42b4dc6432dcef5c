package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/givefi/givefi-backend/api/responses"
	"github.com/givefi/givefi-backend/api/validators"
	"github.com/givefi/givefi-backend/internal/trace"
	"github.com/givefi/givefi-backend/pkg/enums"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
)

type traceRequest struct {
	SeedAddress string `json:"seed_address" validate:"required"`
	MaxDepth    int    `json:"max_depth" validate:"min=0"`
	Currency    string `json:"currency"`
}

func (r traceRequest) toInput() (trace.TraceInput, error) {
	input := trace.TraceInput{
		SeedAddress: r.SeedAddress,
		MaxDepth:    r.MaxDepth,
	}

	if raw := strings.TrimSpace(r.Currency); raw != "" {
		currency, err := enums.ParseCurrency(raw)
		if err != nil {
			return trace.TraceInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
		}
		input.CurrencyFilter = currency
	}
	return input, nil
}

type tracer interface {
	Trace(ctx context.Context, input trace.TraceInput) (*trace.TraceResult, error)
}

// TraceCreate runs a bounded payment-graph traversal from a seed address.
func TraceCreate(svc tracer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trace service unavailable"))
			return
		}

		var payload traceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Trace(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
