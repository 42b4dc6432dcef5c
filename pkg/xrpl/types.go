package xrpl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/givefi/givefi-backend/pkg/enums"
)

// One XRP is 10^6 drops.
const dropsExponent = 6

// DeliveredAmount decodes the two wire shapes the ledger uses for delivered
// funds: a plain string of drops for native XRP, or an issued-currency object
// {currency, value, issuer} for tokens such as RLUSD.
type DeliveredAmount struct {
	Currency enums.Currency
	Value    decimal.Decimal
	Issuer   string
}

type issuedAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
	Issuer   string `json:"issuer"`
}

// UnmarshalJSON validates and normalizes the amount at the decode boundary so
// business logic never sees the raw union shape. Native amounts arrive in
// drops and are converted to whole XRP here.
func (a *DeliveredAmount) UnmarshalJSON(data []byte) error {
	var drops string
	if err := json.Unmarshal(data, &drops); err == nil {
		value, err := decimal.NewFromString(drops)
		if err != nil {
			return fmt.Errorf("invalid drops amount %q: %w", drops, err)
		}
		a.Currency = enums.CurrencyXRP
		a.Value = value.Shift(-dropsExponent)
		a.Issuer = ""
		return nil
	}

	var issued issuedAmount
	if err := json.Unmarshal(data, &issued); err != nil {
		return fmt.Errorf("delivered amount is neither drops nor issued currency: %w", err)
	}
	if issued.Currency == "" || issued.Value == "" {
		return fmt.Errorf("issued amount missing currency or value")
	}
	value, err := decimal.NewFromString(issued.Value)
	if err != nil {
		return fmt.Errorf("invalid issued amount value %q: %w", issued.Value, err)
	}
	a.Currency = enums.Currency(issued.Currency)
	a.Value = value
	a.Issuer = issued.Issuer
	return nil
}

// IsZero reports whether no amount was delivered.
func (a DeliveredAmount) IsZero() bool {
	return a.Value.IsZero()
}

// AccountTransaction is the validated, tagged form of one ledger history
// entry. Only Payment and CheckCash entries decode into it; everything else
// is dropped during decoding.
type AccountTransaction struct {
	Kind            enums.TransactionKind
	Account         string
	Destination     string
	DeliveredAmount DeliveredAmount
	Hash            string
	Fee             string
	ClosedAt        time.Time
}

type rawTransaction struct {
	TxJSON struct {
		TransactionType string `json:"TransactionType"`
		Account         string `json:"Account"`
		Destination     string `json:"Destination"`
		Fee             string `json:"Fee"`
	} `json:"tx_json"`
	Meta struct {
		DeliveredAmount json.RawMessage `json:"delivered_amount"`
	} `json:"meta"`
	Hash         string `json:"hash"`
	CloseTimeISO string `json:"close_time_iso"`
	Validated    bool   `json:"validated"`
}

// decode converts one raw history entry into its tagged form. The second
// return is false for transaction types the tracer does not understand.
func (r rawTransaction) decode() (AccountTransaction, bool, error) {
	kind, err := enums.ParseTransactionKind(r.TxJSON.TransactionType)
	if err != nil {
		return AccountTransaction{}, false, nil
	}

	tx := AccountTransaction{
		Kind:        kind,
		Account:     r.TxJSON.Account,
		Destination: r.TxJSON.Destination,
		Hash:        r.Hash,
		Fee:         r.TxJSON.Fee,
	}

	if r.CloseTimeISO != "" {
		closedAt, err := time.Parse(time.RFC3339, r.CloseTimeISO)
		if err != nil {
			return AccountTransaction{}, false, fmt.Errorf("invalid close time %q: %w", r.CloseTimeISO, err)
		}
		tx.ClosedAt = closedAt
	}

	if len(r.Meta.DeliveredAmount) > 0 {
		if err := json.Unmarshal(r.Meta.DeliveredAmount, &tx.DeliveredAmount); err != nil {
			return AccountTransaction{}, false, fmt.Errorf("decode delivered amount for %s: %w", r.Hash, err)
		}
	}

	return tx, true, nil
}
