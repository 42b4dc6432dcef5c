package trace

import (
	"time"

	"github.com/givefi/givefi-backend/pkg/enums"
	"github.com/givefi/givefi-backend/pkg/xrpl"
	"github.com/shopspring/decimal"
)

// PaymentEdge is a single observed transfer between two ledger addresses.
// Edges are derived per trace request and never persisted.
type PaymentEdge struct {
	Sender    string                `json:"sender"`
	Receiver  string                `json:"receiver"`
	Amount    decimal.Decimal       `json:"amount"`
	Currency  enums.Currency        `json:"currency"`
	TxHash    string                `json:"tx_hash"`
	Timestamp time.Time             `json:"timestamp"`
	Fee       string                `json:"fee"`
	Kind      enums.TransactionKind `json:"kind"`
}

// outgoingEdge maps one history entry for origin to a transfer leaving it.
// Payments are outgoing when origin signed them; check cashes are outgoing
// when someone else cashed a check origin wrote, so the casher receives.
func outgoingEdge(origin string, tx xrpl.AccountTransaction) (PaymentEdge, bool) {
	if tx.DeliveredAmount.IsZero() {
		return PaymentEdge{}, false
	}

	var sender, receiver string
	switch tx.Kind {
	case enums.TransactionKindPayment:
		if tx.Account != origin || tx.Destination == "" || tx.Destination == origin {
			return PaymentEdge{}, false
		}
		sender, receiver = origin, tx.Destination

	case enums.TransactionKindCheckCash:
		if tx.Account == origin || tx.Account == "" {
			return PaymentEdge{}, false
		}
		sender, receiver = origin, tx.Account

	default:
		return PaymentEdge{}, false
	}

	return PaymentEdge{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    tx.DeliveredAmount.Value,
		Currency:  tx.DeliveredAmount.Currency,
		TxHash:    tx.Hash,
		Timestamp: tx.ClosedAt,
		Fee:       tx.Fee,
		Kind:      tx.Kind,
	}, true
}
