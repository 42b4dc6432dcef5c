package causes

import (
	"context"

	"github.com/givefi/givefi-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for relief causes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cause *models.Cause) error
	GetByID(ctx context.Context, id string) (*models.Cause, error)
	List(ctx context.Context) ([]models.Cause, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cause repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cause *models.Cause) error {
	return r.db.WithContext(ctx).Create(cause).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Cause, error) {
	var cause models.Cause
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&cause).Error; err != nil {
		return nil, err
	}
	return &cause, nil
}

func (r *repository) List(ctx context.Context) ([]models.Cause, error) {
	var out []models.Cause
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
