package domain

// ReconciliationAlert is published through the outbox whenever money has
// moved but fulfillment is incomplete. Operators consume these from Kafka;
// there is no customer-facing retry path.
type ReconciliationAlert struct {
	OrderID    string   `json:"order_id"`
	UserID     string   `json:"user_id"`
	Step       Step     `json:"step"`
	Reason     string   `json:"reason"`
	ProductIDs []string `json:"product_ids,omitempty"`
}
