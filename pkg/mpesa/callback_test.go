package mpesa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successCallback = `{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":1.00},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},{"Name":"TransactionDate","Value":20191219102115},{"Name":"PhoneNumber","Value":254708374149}]}}}}`

func TestParseSuccessCallback(t *testing.T) {
	cb, err := ParseCallback([]byte(successCallback))
	require.NoError(t, err)

	assert.True(t, cb.Succeeded())
	assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
	assert.Equal(t, "NLJ7RT61SV", cb.Receipt())
	assert.Equal(t, "254708374149", cb.PhoneNumber())

	amount, ok := cb.Amount()
	require.True(t, ok)
	assert.Equal(t, int64(100), amount)
}

func TestParseFailureCallback(t *testing.T) {
	cb, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m","CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`))
	require.NoError(t, err)

	assert.False(t, cb.Succeeded())
	code, err := cb.Code()
	require.NoError(t, err)
	assert.Equal(t, 1032, code)
	assert.Empty(t, cb.Receipt())
	_, ok := cb.Amount()
	assert.False(t, ok)
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	_, err := ParseCallback([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseCallback([]byte(`{"Body":{}}`))
	assert.True(t, errors.Is(err, ErrMissingCheckoutRequestID))

	_, err = ParseCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"  "}}}`))
	assert.True(t, errors.Is(err, ErrMissingCheckoutRequestID))

	_, err = ParseCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_3"}}}`))
	assert.Error(t, err, "missing result code")
}
