package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callbackBody = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1050.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

func TestSTKCallbackParse(t *testing.T) {
	var env STKCallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(callbackBody), &env))

	cb := env.Body.StkCallback
	assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
	assert.Equal(t, 0, cb.ResultCode)
	assert.Equal(t, "NLJ7RT61SV", cb.MetaValue("MpesaReceiptNumber"))
	assert.Equal(t, "254708374149", cb.MetaValue("PhoneNumber"))
	assert.Equal(t, "", cb.MetaValue("Nonexistent"))
}

func TestSTKCallbackAmountMinor(t *testing.T) {
	var env STKCallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(callbackBody), &env))

	amount, err := env.Body.StkCallback.AmountMinor()
	require.NoError(t, err)
	assert.Equal(t, int64(105000), amount)
}

func TestSTKCallbackAmountMissing(t *testing.T) {
	var cb STKCallback
	_, err := cb.AmountMinor()
	require.Error(t, err)
}
