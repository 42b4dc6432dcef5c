package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/givefi/givefi-backend/pkg/enums"
)

// Donation is a donor's pledge toward a cause. Rows are append-only except for
// the status column, which only the disbursement allocator (or an external
// cancellation) transitions.
type Donation struct {
	DonationID string               `gorm:"column:donation_id;primaryKey"`
	DonorID    string               `gorm:"column:donor_id;not null;index"`
	CauseID    string               `gorm:"column:cause_id;not null;index"`
	Amount     decimal.Decimal      `gorm:"column:amount;type:numeric(20,6);not null"`
	Currency   enums.Currency       `gorm:"column:currency;not null"`
	Status     enums.DonationStatus `gorm:"column:status;type:donation_status;not null;default:'pending'"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default pluralization.
func (Donation) TableName() string {
	return "donations"
}
