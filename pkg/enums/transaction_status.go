package enums

import "fmt"

// TransactionStatus maps to the transaction_status enum in Postgres.
type TransactionStatus string

const (
	TransactionStatusHeld           TransactionStatus = "held"
	TransactionStatusPendingPayment TransactionStatus = "pending_payment"
	TransactionStatusPaid           TransactionStatus = "paid"
	TransactionStatusComplete       TransactionStatus = "complete"
	TransactionStatusDisputed       TransactionStatus = "disputed"
	TransactionStatusRefunded       TransactionStatus = "refunded"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusHeld,
	TransactionStatusPendingPayment,
	TransactionStatusPaid,
	TransactionStatusComplete,
	TransactionStatusDisputed,
	TransactionStatusRefunded,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves the status.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusComplete || s == TransactionStatusRefunded
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
