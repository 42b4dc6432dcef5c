package donations

import (
	"time"

	"github.com/givefi/givefi-backend/pkg/db/models"
	"github.com/givefi/givefi-backend/pkg/enums"
	pkgpagination "github.com/givefi/givefi-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

type ListParams struct {
	CauseID string
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	DonationID string               `json:"donation_id"`
	DonorID    string               `json:"donor_id"`
	CauseID    string               `json:"cause_id"`
	Amount     decimal.Decimal      `json:"amount"`
	Currency   enums.Currency       `json:"currency"`
	Status     enums.DonationStatus `json:"status"`
	CreatedAt  time.Time            `json:"created_at"`
}

type listQuery struct {
	causeID string
	limit   int
	cursor  *pkgpagination.Cursor
}

func toListItem(m models.Donation) ListItem {
	return ListItem{
		DonationID: m.DonationID,
		DonorID:    m.DonorID,
		CauseID:    m.CauseID,
		Amount:     m.Amount,
		Currency:   m.Currency,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
	}
}
