package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/givefi/givefi-backend/api/responses"
	"github.com/givefi/givefi-backend/api/validators"
	"github.com/givefi/givefi-backend/internal/donations"
	"github.com/givefi/givefi-backend/pkg/enums"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
)

type donationCreateRequest struct {
	DonationID string `json:"donation_id"`
	DonorID    string `json:"donor_id" validate:"required"`
	CauseID    string `json:"cause_id" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
	Currency   string `json:"currency" validate:"required"`
}

func (r donationCreateRequest) toInput() (donations.CreateDonationInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return donations.CreateDonationInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}

	currency, err := enums.ParseCurrency(strings.TrimSpace(r.Currency))
	if err != nil {
		return donations.CreateDonationInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	return donations.CreateDonationInput{
		DonationID: r.DonationID,
		DonorID:    r.DonorID,
		CauseID:    r.CauseID,
		Amount:     amount,
		Currency:   currency,
	}, nil
}

// DonationCreate records a donor pledge against a cause.
func DonationCreate(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donation service unavailable"))
			return
		}

		var payload donationCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donation, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, donation)
	}
}

// DonationListByCause returns a cause's donations, newest first.
func DonationListByCause(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donation service unavailable"))
			return
		}

		pag, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByCause(r.Context(), donations.ListParams{
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
