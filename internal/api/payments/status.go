package payments

import "github.com/polkaapp/polka-api/internal/types"

// providerStatusMap translates the payment provider's status strings into
// internal order states. "waiting_for_capture" means the money is authorized
// but not yet captured, so the order stays pending.
var providerStatusMap = map[string]types.OrderStatus{
	"pending":             types.OrderStatusPending,
	"waiting_for_capture": types.OrderStatusPending,
	"succeeded":           types.OrderStatusPaid,
	"canceled":            types.OrderStatusCancelled,
}

// MapProviderStatus returns the order status for a provider payment status.
// Unknown statuses report ok=false and must cause no order transition.
func MapProviderStatus(providerStatus string) (types.OrderStatus, bool) {
	status, ok := providerStatusMap[providerStatus]
	return status, ok
}
