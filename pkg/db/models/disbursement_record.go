package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DisbursementRecord credits part of a settlement payment against a single
// donation. Rows are append-only and never mutated; the unique
// (donation_id, disbursement_ref) pair is the allocator's idempotency key.
type DisbursementRecord struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DonationID      string          `gorm:"column:donation_id;not null;uniqueIndex:idx_disbursement_donation_ref"`
	DisbursementRef string          `gorm:"column:disbursement_ref;not null;uniqueIndex:idx_disbursement_donation_ref;index"`
	CauseID         string          `gorm:"column:cause_id;not null;index"`
	DonorID         string          `gorm:"column:donor_id;not null"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(20,6);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default pluralization.
func (DisbursementRecord) TableName() string {
	return "disbursement_records"
}
