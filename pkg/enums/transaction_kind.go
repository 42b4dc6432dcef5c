package enums

import "fmt"

// TransactionKind tags the ledger transaction variants the tracer understands.
// CheckCash transfers are treated as payments once decoded.
type TransactionKind string

const (
	TransactionKindPayment   TransactionKind = "Payment"
	TransactionKindCheckCash TransactionKind = "CheckCash"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindPayment,
	TransactionKindCheckCash,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
