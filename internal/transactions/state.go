package transactions

import (
	"fmt"

	"github.com/kariuki00743/safipay/pkg/enums"
	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

// Trigger names an operation that moves a transaction between statuses.
type Trigger string

const (
	TriggerInitiatePayment  Trigger = "initiate_payment"
	TriggerPaymentConfirmed Trigger = "payment_confirmed"
	TriggerPaymentFailed    Trigger = "payment_failed"
	TriggerCancelPayment    Trigger = "cancel_payment"
	TriggerRelease          Trigger = "release"
	TriggerDispute          Trigger = "dispute"
	TriggerRefund           Trigger = "refund"
)

type transition struct {
	from []enums.TransactionStatus
	to   enums.TransactionStatus
}

// transitions is the complete graph. pending_payment -> held is the only edge
// that moves backwards.
var transitions = map[Trigger]transition{
	TriggerInitiatePayment: {
		from: []enums.TransactionStatus{enums.TransactionStatusHeld},
		to:   enums.TransactionStatusPendingPayment,
	},
	TriggerPaymentConfirmed: {
		from: []enums.TransactionStatus{enums.TransactionStatusPendingPayment},
		to:   enums.TransactionStatusPaid,
	},
	TriggerPaymentFailed: {
		from: []enums.TransactionStatus{enums.TransactionStatusPendingPayment},
		to:   enums.TransactionStatusHeld,
	},
	TriggerCancelPayment: {
		from: []enums.TransactionStatus{enums.TransactionStatusPendingPayment},
		to:   enums.TransactionStatusHeld,
	},
	TriggerRelease: {
		from: []enums.TransactionStatus{enums.TransactionStatusPaid},
		to:   enums.TransactionStatusComplete,
	},
	TriggerDispute: {
		from: []enums.TransactionStatus{
			enums.TransactionStatusHeld,
			enums.TransactionStatusPendingPayment,
			enums.TransactionStatusPaid,
		},
		to: enums.TransactionStatusDisputed,
	},
	TriggerRefund: {
		from: []enums.TransactionStatus{enums.TransactionStatusPaid, enums.TransactionStatusDisputed},
		to:   enums.TransactionStatusRefunded,
	},
}

// Target returns the status trigger leads to.
func Target(trigger Trigger) enums.TransactionStatus {
	return transitions[trigger].to
}

// Sources returns the statuses trigger may be applied from.
func Sources(trigger Trigger) []enums.TransactionStatus {
	from := transitions[trigger].from
	out := make([]enums.TransactionStatus, len(from))
	copy(out, from)
	return out
}

// Allowed reports whether trigger may fire from current.
func Allowed(trigger Trigger, current enums.TransactionStatus) bool {
	t, ok := transitions[trigger]
	if !ok {
		return false
	}
	for _, status := range t.from {
		if status == current {
			return true
		}
	}
	return false
}

// checkTransition returns an InvalidStateTransition error when trigger may not fire.
func checkTransition(trigger Trigger, current enums.TransactionStatus) error {
	if Allowed(trigger, current) {
		return nil
	}
	return invalidTransition(current, Target(trigger))
}

func invalidTransition(current, target enums.TransactionStatus) error {
	return pkgerrors.New(
		pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot move transaction from %s to %s", current, target),
	).WithDetails(map[string]any{
		"currentStatus": current,
		"targetStatus":  target,
	})
}
