package domain

type TransactionRecorded struct {
	TransactionID string            `json:"transaction_id"`
	OrderID       string            `json:"order_id"`
	UserID        string            `json:"user_id"`
	AmountMinor   int64             `json:"amount_minor"`
	Currency      string            `json:"currency"`
	Method        PaymentMethod     `json:"payment_method"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
