package disbursements

import (
	"time"

	"github.com/givefi/givefi-backend/pkg/db/models"
	pkgpagination "github.com/givefi/givefi-backend/pkg/pagination"
	"github.com/google/uuid"
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
	ID              uuid.UUID       `json:"id"`
	DonationID      string          `json:"donation_id"`
	DisbursementRef string          `json:"disbursement_ref"`
	CauseID         string          `json:"cause_id"`
	DonorID         string          `json:"donor_id"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

type listQuery struct {
	causeID string
	limit   int
	cursor  *pkgpagination.Cursor
}

func toListItem(m models.DisbursementRecord) ListItem {
	return ListItem{
		ID:              m.ID,
		DonationID:      m.DonationID,
		DisbursementRef: m.DisbursementRef,
		CauseID:         m.CauseID,
		DonorID:         m.DonorID,
		Amount:          m.Amount,
		CreatedAt:       m.CreatedAt,
	}
}
