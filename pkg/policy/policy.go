package policy

// Actions checked at the payment boundary. Role checks live here, once,
// instead of being re-implemented per handler.
const (
	ActionReadOwnTransactions = "transactions:read_own"
	ActionReadAllTransactions = "transactions:read_all"
	ActionInitiatePayment     = "payments:initiate"
)

var grants = map[string]map[string]bool{
	"user": {
		ActionReadOwnTransactions: true,
		ActionInitiatePayment:     true,
	},
	"admin": {
		ActionReadOwnTransactions: true,
		ActionReadAllTransactions: true,
		ActionInitiatePayment:     true,
	},
}

func CanAccess(role, action string) bool {
	return grants[role][action]
}
