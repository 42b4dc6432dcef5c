package donations

import (
	"context"

	"github.com/givefi/givefi-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for donations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, donation *models.Donation) error
	GetByID(ctx context.Context, donationID string) (*models.Donation, error)
	ListByCause(ctx context.Context, q listQuery) ([]models.Donation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a donation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, donation *models.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *repository) GetByID(ctx context.Context, donationID string) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		First(&donation).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

// ListByCause returns cause-scoped donations using cursor pagination, newest first.
func (r *repository) ListByCause(ctx context.Context, q listQuery) ([]models.Donation, error) {
	query := r.db.WithContext(ctx).Model(&models.Donation{}).Where("cause_id = ?", q.causeID)

	if q.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND donation_id < ?)", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("donation_id DESC").Limit(q.limit)

	var rows []models.Donation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
