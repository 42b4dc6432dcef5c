package disbursements

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/givefi/givefi-backend/pkg/db"
	"github.com/givefi/givefi-backend/pkg/db/models"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
	"github.com/givefi/givefi-backend/pkg/metrics"
	pkgpagination "github.com/givefi/givefi-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service allocates settlement payments across pending donations and exposes
// disbursement history by cause and by donation.
type Service interface {
	Allocate(ctx context.Context, input AllocateInput) (*AllocationResult, error)
	ListByCause(ctx context.Context, params ListParams) (*ListResult, error)
	ListByDonation(ctx context.Context, donationID string) ([]ListItem, error)
}

// AllocateInput identifies one settlement payment to disburse.
type AllocateInput struct {
	CauseID         string          `json:"cause_id"`
	Amount          decimal.Decimal `json:"amount"`
	DisbursementRef string          `json:"disbursement_ref"`
}

// AllocationResult reports the records written by a batch. Replayed is true
// when the ref had already been allocated and the stored records were
// returned instead of writing new ones. On a replay the surplus is
// recomputed as input amount minus the stored record sum, so it only
// matches the original batch when the caller retries with the original
// amount; a smaller amount drives it negative.
type AllocationResult struct {
	Records            []models.DisbursementRecord `json:"records"`
	UnallocatedSurplus decimal.Decimal             `json:"unallocated_surplus"`
	Replayed           bool                        `json:"replayed"`
}

type causeReader interface {
	Get(ctx context.Context, id string) (*models.Cause, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	causes  causeReader
	tx      txRunner
	locks   *CauseLocker
	logger  *logger.Logger
	metrics *metrics.AllocationMetrics
}

// NewService wires the allocator with its persistence, lock, and metric deps.
func NewService(repo Repository, causes causeReader, tx txRunner, locks *CauseLocker, logg *logger.Logger, m *metrics.AllocationMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disbursement repository required")
	}
	if causes == nil {
		return nil, fmt.Errorf("cause reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locks == nil {
		return nil, fmt.Errorf("cause locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, causes: causes, tx: tx, locks: locks, logger: logg, metrics: m}, nil
}

// Allocate walks the cause's pending donations oldest first and credits each
// until the settlement amount is exhausted. A donation fully consumed in the
// batch transitions to Completed; a partially consumed donation stays
// Pending, and a later batch re-reads its full amount (remaining balances
// are not tracked across batches). All writes for one call commit in a
// single transaction, and a replayed disbursement ref returns the records
// stored by the first call without writing again.
func (s *service) Allocate(ctx context.Context, input AllocateInput) (*AllocationResult, error) {
	start := time.Now()

	result, err := s.allocate(ctx, input)
	if err != nil {
		if s.metrics != nil {
			code := string(pkgerrors.CodeInternal)
			if appErr := pkgerrors.As(err); appErr != nil {
				code = string(appErr.Code())
			}
			s.metrics.ObserveFailure(time.Since(start), code)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(time.Since(start), len(result.Records), result.UnallocatedSurplus.IsPositive())
	}
	return result, nil
}

func (s *service) allocate(ctx context.Context, input AllocateInput) (*AllocationResult, error) {
	causeID := strings.TrimSpace(input.CauseID)
	ref := strings.TrimSpace(input.DisbursementRef)

	if causeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cause id is required")
	}
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "disbursement ref is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "disbursement amount must be positive")
	}

	ctx = s.logger.WithCauseID(ctx, causeID)
	ctx = s.logger.WithDisbursementRef(ctx, ref)

	if _, err := s.causes.Get(ctx, causeID); err != nil {
		return nil, err
	}

	lock := s.locks.For(causeID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "acquire allocation lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "allocation already in progress for cause")
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logger.Error(ctx, "release allocation lock", releaseErr)
		}
	}()

	var (
		records  []models.DisbursementRecord
		surplus  decimal.Decimal
		replayed bool
	)

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.ListByCauseAndRef(ctx, causeID, ref)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check disbursement ref")
		}
		if len(existing) > 0 {
			records = existing
			replayed = true

			disbursed := decimal.Zero
			for _, record := range existing {
				disbursed = disbursed.Add(record.Amount)
			}
			surplus = input.Amount.Sub(disbursed)
			return nil
		}

		pending, err := repo.ListPendingForUpdate(ctx, causeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read pending donations")
		}

		remaining := input.Amount
		for _, donation := range pending {
			if !remaining.IsPositive() {
				break
			}

			fulfillment := decimal.Min(donation.Amount, remaining)
			records = append(records, models.DisbursementRecord{
				DonationID:      donation.DonationID,
				DisbursementRef: ref,
				CauseID:         causeID,
				DonorID:         donation.DonorID,
				Amount:          fulfillment,
			})

			if fulfillment.GreaterThanOrEqual(donation.Amount) {
				if err := repo.MarkDonationCompleted(ctx, donation.DonationID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "complete donation")
				}
			}

			remaining = remaining.Sub(fulfillment)
		}
		surplus = remaining

		if err := repo.CreateRecords(ctx, records); err != nil {
			if db.IsUniqueViolation(err, "idx_disbursement_donation_ref") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "disbursement ref already allocated")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write disbursement records")
		}
		return nil
	})
	if txErr != nil {
		if appErr := pkgerrors.As(txErr); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, txErr, "allocation transaction")
	}

	if replayed {
		if surplus.IsNegative() {
			ctx = s.logger.WithField(ctx, "surplus", surplus.String())
			s.logger.Warn(ctx, "replayed disbursement amount is below the stored record sum")
		}
		s.logger.Info(ctx, "disbursement ref replayed, returning stored records")
	} else {
		ctx = s.logger.WithFields(ctx, map[string]any{
			"record_count": len(records),
			"surplus":      surplus.String(),
		})
		s.logger.Info(ctx, "allocation batch committed")
	}

	return &AllocationResult{
		Records:            records,
		UnallocatedSurplus: surplus,
		Replayed:           replayed,
	}, nil
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
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list disbursements")
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		// The cursor carries the last returned row; the strict repo filter
		// resumes just past it, so the overflow row opens the next page.
		last := rows[limit-1]
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID.String(),
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

func (s *service) ListByDonation(ctx context.Context, donationID string) ([]ListItem, error) {
	if strings.TrimSpace(donationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id is required")
	}

	rows, err := s.repo.ListByDonation(ctx, donationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list donation disbursements")
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return items, nil
}
