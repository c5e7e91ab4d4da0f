package domain

import (
	"fmt"
	"strconv"
)

// STKCallbackEnvelope is the Daraja push-payment callback body. Only the
// fields the coordinator needs are modelled; everything else rides along in
// provider metadata.
type STKCallbackEnvelope struct {
	Body struct {
		StkCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// CallbackItem values arrive as strings or numbers depending on the field.
type CallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

func (c STKCallback) MetaValue(name string) string {
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// STKStatus is the provider's answer to a push status query. ResultCode "0"
// means the customer completed the prompt; "1032" means they cancelled.
type STKStatus struct {
	ResultCode string `json:"result_code"`
	ResultDesc string `json:"result_desc"`
}

// Paid reports whether the prompt was completed successfully.
func (s STKStatus) Paid() bool {
	return s.ResultCode == "0"
}

// AmountMinor converts the callback Amount (whole currency units) to minor
// units.
func (c STKCallback) AmountMinor() (int64, error) {
	raw := c.MetaValue("Amount")
	if raw == "" {
		return 0, fmt.Errorf("callback metadata has no Amount item")
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("callback Amount %q: %w", raw, err)
	}
	return int64(amount * 100), nil
}
