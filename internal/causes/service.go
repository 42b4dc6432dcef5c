package causes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/givefi/givefi-backend/pkg/db/models"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes read and admin operations over relief causes.
type Service interface {
	Create(ctx context.Context, input CreateCauseInput) (*models.Cause, error)
	Get(ctx context.Context, id string) (*models.Cause, error)
	List(ctx context.Context) ([]models.Cause, error)
}

// CreateCauseInput captures the fields required to register a cause.
type CreateCauseInput struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Goal          decimal.Decimal `json:"goal"`
	Category      string          `json:"category"`
	WalletAddress string          `json:"wallet_address"`
	ImageURL      string          `json:"image_url"`
}

type service struct {
	repo Repository
}

// NewService wires a cause service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cause repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateCauseInput) (*models.Cause, error) {
	if strings.TrimSpace(input.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cause id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cause title is required")
	}
	if input.Goal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cause goal cannot be negative")
	}

	cause := &models.Cause{
		ID:            strings.TrimSpace(input.ID),
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		Goal:          input.Goal,
		Category:      input.Category,
		WalletAddress: strings.TrimSpace(input.WalletAddress),
		ImageURL:      input.ImageURL,
	}

	if err := s.repo.Create(ctx, cause); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create cause")
	}
	return cause, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Cause, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cause id is required")
	}

	cause, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cause not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cause")
	}
	return cause, nil
}

func (s *service) List(ctx context.Context) ([]models.Cause, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list causes")
	}
	return out, nil
}
