package trace

import (
	"sort"
	"time"

	"github.com/givefi/givefi-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// ConsolidatedEdge aggregates every transfer between one sender and receiver
// in one currency. Member lists are sorted by timestamp ascending and the
// total is an exact decimal sum.
type ConsolidatedEdge struct {
	Sender           string            `json:"sender"`
	Receiver         string            `json:"receiver"`
	Currency         enums.Currency    `json:"currency"`
	Amounts          []decimal.Decimal `json:"amounts"`
	Hashes           []string          `json:"hashes"`
	Fees             []string          `json:"fees"`
	Timestamps       []time.Time       `json:"timestamps"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	FirstTimestamp   time.Time         `json:"first_timestamp"`
	LastTimestamp    time.Time         `json:"last_timestamp"`
	TransactionCount int               `json:"transaction_count"`
}

type edgeKey struct {
	sender   string
	receiver string
	currency enums.Currency
}

// Consolidate groups raw edges by (sender, receiver, currency). Groups keep
// the order their key was first observed in.
func Consolidate(edges []PaymentEdge) []ConsolidatedEdge {
	groups := map[edgeKey][]PaymentEdge{}
	order := []edgeKey{}

	for _, edge := range edges {
		key := edgeKey{sender: edge.Sender, receiver: edge.Receiver, currency: edge.Currency}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], edge)
	}

	out := make([]ConsolidatedEdge, 0, len(order))
	for _, key := range order {
		members := groups[key]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Timestamp.Before(members[j].Timestamp)
		})

		consolidated := ConsolidatedEdge{
			Sender:           key.sender,
			Receiver:         key.receiver,
			Currency:         key.currency,
			Amounts:          make([]decimal.Decimal, 0, len(members)),
			Hashes:           make([]string, 0, len(members)),
			Fees:             make([]string, 0, len(members)),
			Timestamps:       make([]time.Time, 0, len(members)),
			TotalAmount:      decimal.Zero,
			TransactionCount: len(members),
		}
		for _, member := range members {
			consolidated.Amounts = append(consolidated.Amounts, member.Amount)
			consolidated.Hashes = append(consolidated.Hashes, member.TxHash)
			consolidated.Fees = append(consolidated.Fees, member.Fee)
			consolidated.Timestamps = append(consolidated.Timestamps, member.Timestamp)
			consolidated.TotalAmount = consolidated.TotalAmount.Add(member.Amount)
		}
		consolidated.FirstTimestamp = consolidated.Timestamps[0]
		consolidated.LastTimestamp = consolidated.Timestamps[len(consolidated.Timestamps)-1]

		out = append(out, consolidated)
	}
	return out
}
