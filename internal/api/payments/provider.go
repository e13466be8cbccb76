package payments

import "context"

// CreatePaymentParams describes the provider-side payment to create for an
// order.
type CreatePaymentParams struct {
	OrderID     string
	OrderNumber string
	Amount      string
	Currency    string
	Description string
	ReturnURL   string
}

// ProviderPayment is the provider's view of a created payment.
type ProviderPayment struct {
	ID              string
	Status          string
	ConfirmationURL string
}

// PaymentProvider abstracts the payment gateway. The webhook flow only needs
// the interface; a concrete HTTP client can be wired in without touching the
// service.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, params CreatePaymentParams) (*ProviderPayment, error)
}
