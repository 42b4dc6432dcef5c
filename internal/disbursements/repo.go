package disbursements

import (
	"context"

	"github.com/givefi/givefi-backend/pkg/db/models"
	"github.com/givefi/givefi-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for disbursement records and the donation
// rows an allocation batch touches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListPendingForUpdate(ctx context.Context, causeID string) ([]models.Donation, error)
	MarkDonationCompleted(ctx context.Context, donationID string) error
	CreateRecords(ctx context.Context, records []models.DisbursementRecord) error
	ListByCauseAndRef(ctx context.Context, causeID, disbursementRef string) ([]models.DisbursementRecord, error)
	ListByCause(ctx context.Context, q listQuery) ([]models.DisbursementRecord, error)
	ListByDonation(ctx context.Context, donationID string) ([]models.DisbursementRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a disbursement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListPendingForUpdate reads the pending donations for a cause oldest first,
// holding row locks until the surrounding transaction commits.
func (r *repository) ListPendingForUpdate(ctx context.Context, causeID string) ([]models.Donation, error) {
	var rows []models.Donation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cause_id = ? AND status = ?", causeID, enums.DonationStatusPending).
		Order("created_at ASC").
		Order("donation_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkDonationCompleted(ctx context.Context, donationID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("donation_id = ?", donationID).
		Update("status", enums.DonationStatusCompleted).Error
}

func (r *repository) CreateRecords(ctx context.Context, records []models.DisbursementRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *repository) ListByCauseAndRef(ctx context.Context, causeID, disbursementRef string) ([]models.DisbursementRecord, error) {
	var rows []models.DisbursementRecord
	if err := r.db.WithContext(ctx).
		Where("cause_id = ? AND disbursement_ref = ?", causeID, disbursementRef).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByDonation returns every record credited against one donation, oldest
// first. A donation accrues at most a handful of records, so no pagination.
func (r *repository) ListByDonation(ctx context.Context, donationID string) ([]models.DisbursementRecord, error) {
	var rows []models.DisbursementRecord
	if err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByCause returns cause-scoped disbursement records using cursor
// pagination, newest first.
func (r *repository) ListByCause(ctx context.Context, q listQuery) ([]models.DisbursementRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.DisbursementRecord{}).Where("cause_id = ?", q.causeID)

	if q.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(q.limit)

	var rows []models.DisbursementRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
