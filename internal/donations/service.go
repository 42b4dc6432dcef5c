package donations

import (
	"context"
	"fmt"
	"strings"

	"github.com/givefi/givefi-backend/pkg/db/models"
	"github.com/givefi/givefi-backend/pkg/enums"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	pkgpagination "github.com/givefi/givefi-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes donation intake and cause-scoped listing.
type Service interface {
	Create(ctx context.Context, input CreateDonationInput) (*models.Donation, error)
	ListByCause(ctx context.Context, params ListParams) (*ListResult, error)
}

// CreateDonationInput captures the fields required to record a donation.
// DonationID is optional; a fresh identifier is minted when absent.
type CreateDonationInput struct {
	DonationID string          `json:"donation_id"`
	DonorID    string          `json:"donor_id"`
	CauseID    string          `json:"cause_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   enums.Currency  `json:"currency"`
}

type causeReader interface {
	Get(ctx context.Context, id string) (*models.Cause, error)
}

type service struct {
	repo   Repository
	causes causeReader
}

// NewService wires a donation service with its repository and cause reader.
func NewService(repo Repository, causes causeReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("donation repository required")
	}
	if causes == nil {
		return nil, fmt.Errorf("cause reader required")
	}
	return &service{repo: repo, causes: causes}, nil
}

func (s *service) Create(ctx context.Context, input CreateDonationInput) (*models.Donation, error) {
	if strings.TrimSpace(input.DonorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id is required")
	}
	if strings.TrimSpace(input.CauseID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cause id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation amount must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}

	// Unknown causes are rejected here so pending rows never reference a
	// cause the allocator cannot resolve.
	if _, err := s.causes.Get(ctx, input.CauseID); err != nil {
		return nil, err
	}

	donationID := strings.TrimSpace(input.DonationID)
	if donationID == "" {
		donationID = fmt.Sprintf("donation-%s", uuid.NewString())
	}

	donation := &models.Donation{
		DonationID: donationID,
		DonorID:    strings.TrimSpace(input.DonorID),
		CauseID:    strings.TrimSpace(input.CauseID),
		Amount:     input.Amount,
		Currency:   input.Currency,
		Status:     enums.DonationStatusPending,
	}

	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create donation")
	}
	return donation, nil
}

func (s *service) ListByCause(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.CauseID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cause id is required")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		causeID: params.CauseID,
		limit:   pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.ListByCause(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list donations")
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		// The cursor carries the last returned row; the strict repo filter
		// resumes just past it, so the overflow row opens the next page.
		last := rows[limit-1]
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.DonationID,
		})
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}

	return &ListResult{
		Items:  items,
		Cursor: nextCursor,
	}, nil
}
