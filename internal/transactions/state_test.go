package transactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariuki00743/safipay/pkg/enums"
	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

var allStatuses = []enums.TransactionStatus{
	enums.TransactionStatusHeld,
	enums.TransactionStatusPendingPayment,
	enums.TransactionStatusPaid,
	enums.TransactionStatusComplete,
	enums.TransactionStatusDisputed,
	enums.TransactionStatusRefunded,
}

func TestTransitionGraph(t *testing.T) {
	allowed := map[Trigger][]enums.TransactionStatus{
		TriggerInitiatePayment:  {enums.TransactionStatusHeld},
		TriggerPaymentConfirmed: {enums.TransactionStatusPendingPayment},
		TriggerPaymentFailed:    {enums.TransactionStatusPendingPayment},
		TriggerCancelPayment:    {enums.TransactionStatusPendingPayment},
		TriggerRelease:          {enums.TransactionStatusPaid},
		TriggerDispute:          {enums.TransactionStatusHeld, enums.TransactionStatusPendingPayment, enums.TransactionStatusPaid},
		TriggerRefund:           {enums.TransactionStatusPaid, enums.TransactionStatusDisputed},
	}

	for trigger, sources := range allowed {
		for _, status := range allStatuses {
			want := false
			for _, s := range sources {
				if s == status {
					want = true
				}
			}
			assert.Equal(t, want, Allowed(trigger, status), "%s from %s", trigger, status)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for trigger := range transitions {
		assert.False(t, Allowed(trigger, enums.TransactionStatusComplete), "%s from complete", trigger)
		assert.False(t, Allowed(trigger, enums.TransactionStatusRefunded), "%s from refunded", trigger)
	}
}

func TestCheckTransitionNamesStatuses(t *testing.T) {
	err := checkTransition(TriggerRelease, enums.TransactionStatusHeld)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, typed.Code())
	assert.Contains(t, typed.Message(), "held")
	assert.Contains(t, typed.Message(), "complete")

	assert.NoError(t, checkTransition(TriggerRefund, enums.TransactionStatusDisputed))
	assert.False(t, Allowed(Trigger("teleport"), enums.TransactionStatusHeld))
}

func TestSourcesReturnsCopy(t *testing.T) {
	sources := Sources(TriggerDispute)
	sources[0] = enums.TransactionStatusRefunded
	assert.True(t, Allowed(TriggerDispute, enums.TransactionStatusHeld))
}
