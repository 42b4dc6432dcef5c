package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/givefi/givefi-backend/api/responses"
	"github.com/givefi/givefi-backend/api/validators"
	"github.com/givefi/givefi-backend/internal/causes"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
)

type causeCreateRequest struct {
	ID            string `json:"id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description"`
	Goal          string `json:"goal"`
	Category      string `json:"category"`
	WalletAddress string `json:"wallet_address"`
	ImageURL      string `json:"image_url"`
}

func (r causeCreateRequest) toInput() (causes.CreateCauseInput, error) {
	goal := decimal.Zero
	if strings.TrimSpace(r.Goal) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(r.Goal))
		if err != nil {
			return causes.CreateCauseInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid goal")
		}
		goal = parsed
	}

	return causes.CreateCauseInput{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Goal:          goal,
		Category:      r.Category,
		WalletAddress: r.WalletAddress,
		ImageURL:      r.ImageURL,
	}, nil
}

// CauseCreate registers a new relief cause.
func CauseCreate(svc causes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cause service unavailable"))
			return
		}

		var payload causeCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cause, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, cause)
	}
}

// CauseList returns all registered causes.
func CauseList(svc causes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cause service unavailable"))
			return
		}

		out, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

// CauseGet returns a single cause by id.
func CauseGet(svc causes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cause service unavailable"))
			return
		}

		cause, err := svc.Get(r.Context(), chi.URLParam(r, "causeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cause)
	}
}
