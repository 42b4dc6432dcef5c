package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cause is a fundraising target that receives donations and periodic
// settlement payments to its ledger wallet.
type Cause struct {
	ID            string          `gorm:"column:id;primaryKey"`
	Title         string          `gorm:"column:title;not null"`
	Description   string          `gorm:"column:description"`
	Goal          decimal.Decimal `gorm:"column:goal;type:numeric(20,6);not null"`
	Category      string          `gorm:"column:category"`
	WalletAddress string          `gorm:"column:wallet_address"`
	ImageURL      string          `gorm:"column:image_url"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default pluralization.
func (Cause) TableName() string {
	return "causes"
}
