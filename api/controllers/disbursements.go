package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/givefi/givefi-backend/api/responses"
	"github.com/givefi/givefi-backend/api/validators"
	"github.com/givefi/givefi-backend/internal/disbursements"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
)

type disbursementRequest struct {
	CauseID         string `json:"cause_id" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	DisbursementRef string `json:"disbursement_ref" validate:"required"`
}

func (r disbursementRequest) toInput() (disbursements.AllocateInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return disbursements.AllocateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}

	return disbursements.AllocateInput{
		CauseID:         r.CauseID,
		Amount:          amount,
		DisbursementRef: r.DisbursementRef,
	}, nil
}

// DisbursementAllocate runs one settlement allocation batch.
func DisbursementAllocate(svc disbursements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disbursement service unavailable"))
			return
		}

		var payload disbursementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Allocate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// DisbursementListByCause returns a cause's disbursement records, newest first.
func DisbursementListByCause(svc disbursements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disbursement service unavailable"))
			return
		}

		pag, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByCause(r.Context(), disbursements.ListParams{
			CauseID: chi.URLParam(r, "causeId"),
			Params:  pag,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// DisbursementListByDonation returns every record credited against one
// donation, oldest first.
func DisbursementListByDonation(svc disbursements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disbursement service unavailable"))
			return
		}

		items, err := svc.ListByDonation(r.Context(), chi.URLParam(r, "donationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}
