package payments

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polkaapp/polka-api/internal/types"
)

// maxOrderNumberProbes bounds the collision probing for 5-digit order numbers.
// After the cap an extra random digit is appended per further attempt, so
// generation terminates even on a dense number space.
const maxOrderNumberProbes = 20

// WebhookNotification is the provider's payment event payload.
type WebhookNotification struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Metadata struct {
			OrderID string `json:"order_id"`
		} `json:"metadata"`
	} `json:"object"`
}

// CreateOrderRequest is the client's checkout payload. Currency defaults to
// RUB when omitted.
type CreateOrderRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
}

// OrderConfirmation is returned from checkout; the client redirects the user
// to ConfirmationURL to complete the payment.
type OrderConfirmation struct {
	Order           types.Order `json:"order"`
	PaymentID       string      `json:"payment_id"`
	ConfirmationURL string      `json:"confirmation_url"`
}

var _ PaymentsService = (*PaymentsServiceImpl)(nil)

type PaymentsService interface {
	// CreateOrder creates a pending order with a fresh order number and a
	// provider-side payment for it.
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*OrderConfirmation, error)
	GetOrder(ctx context.Context, userID, orderID string) (*types.Order, error)
	// HandleNotification records the payment and transitions the order per
	// the status mapping. Unknown provider statuses record the payment but
	// leave the order untouched.
	HandleNotification(ctx context.Context, n WebhookNotification) error
	GenerateOrderNumber(ctx context.Context) (string, error)
}

type PaymentsServiceImpl struct {
	repo     PaymentsRepo
	provider PaymentProvider
	logger   *slog.Logger
}

func NewPaymentsService(repo PaymentsRepo, provider PaymentProvider, logger *slog.Logger) *PaymentsServiceImpl {
	return &PaymentsServiceImpl{repo: repo, provider: provider, logger: logger}
}

func (s *PaymentsServiceImpl) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*OrderConfirmation, error) {
	ctx, span := otel.Tracer("PaymentsService").Start(ctx, "CreateOrder",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateOrder"), slog.String("userID", userID))

	if req.Amount == "" {
		return nil, fmt.Errorf("order amount is required: %w", types.ErrValidation)
	}
	currency := req.Currency
	if currency == "" {
		currency = "RUB"
	}

	number, err := s.GenerateOrderNumber(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Order number generation failed")
		return nil, err
	}

	order := types.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		OrderNumber: number,
		TotalAmount: req.Amount,
		Currency:    currency,
		Status:      types.OrderStatusPending,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Order insert failed")
		return nil, err
	}

	payment, err := s.provider.CreatePayment(ctx, CreatePaymentParams{
		OrderID:     order.ID,
		OrderNumber: number,
		Amount:      req.Amount,
		Currency:    currency,
		Description: req.Description,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider payment creation failed")
		return nil, fmt.Errorf("creating provider payment: %w", err)
	}

	if err := s.repo.UpsertPayment(ctx, types.Payment{
		ID:       payment.ID,
		OrderID:  order.ID,
		Amount:   req.Amount,
		Currency: currency,
		Status:   payment.Status,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Payment record failed")
		return nil, err
	}

	l.InfoContext(ctx, "Order created", slog.String("orderNumber", number),
		slog.String("paymentID", payment.ID))
	span.SetStatus(codes.Ok, "Order created")
	return &OrderConfirmation{
		Order:           order,
		PaymentID:       payment.ID,
		ConfirmationURL: payment.ConfirmationURL,
	}, nil
}

// GetOrder returns the order only to its owner; anyone else sees not-found.
func (s *PaymentsServiceImpl) GetOrder(ctx context.Context, userID, orderID string) (*types.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, types.ErrNotFound
	}
	return order, nil
}

func (s *PaymentsServiceImpl) HandleNotification(ctx context.Context, n WebhookNotification) error {
	ctx, span := otel.Tracer("PaymentsService").Start(ctx, "HandleNotification",
		trace.WithAttributes(
			attribute.String("payment.id", n.Object.ID),
			attribute.String("payment.event", n.Event),
		))
	defer span.End()
	l := s.logger.With(slog.String("method", "HandleNotification"),
		slog.String("paymentID", n.Object.ID), slog.String("orderID", n.Object.Metadata.OrderID))

	if n.Object.ID == "" || n.Object.Metadata.OrderID == "" {
		return fmt.Errorf("notification missing payment or order id: %w", types.ErrValidation)
	}

	order, err := s.repo.GetOrderByID(ctx, n.Object.Metadata.OrderID)
	if err != nil {
		span.SetStatus(codes.Error, "Order lookup failed")
		return err
	}

	if err := s.repo.UpsertPayment(ctx, types.Payment{
		ID:       n.Object.ID,
		OrderID:  order.ID,
		Amount:   n.Object.Amount.Value,
		Currency: n.Object.Amount.Currency,
		Status:   n.Object.Status,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Payment upsert failed")
		return err
	}

	status, known := MapProviderStatus(n.Object.Status)
	if !known {
		l.WarnContext(ctx, "Unknown provider payment status, order untouched",
			slog.String("status", n.Object.Status))
		span.SetStatus(codes.Ok, "Payment recorded, status unmapped")
		return nil
	}

	if status == order.Status {
		span.SetStatus(codes.Ok, "Order already in target status")
		return nil
	}

	if err := s.repo.UpdateOrderStatus(ctx, order.ID, status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Order transition failed")
		return err
	}

	l.InfoContext(ctx, "Order transitioned",
		slog.String("from", string(order.Status)), slog.String("to", string(status)))
	span.SetStatus(codes.Ok, "Order transitioned")
	return nil
}

// GenerateOrderNumber picks random 5-digit numbers and probes the store,
// widening by one digit per attempt once the probe cap is reached.
func (s *PaymentsServiceImpl) GenerateOrderNumber(ctx context.Context) (string, error) {
	width := 5
	for attempt := 1; ; attempt++ {
		candidate := randomNumber(width)
		exists, err := s.repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("error probing order number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		if attempt%maxOrderNumberProbes == 0 {
			width++
		}
	}
}

func randomNumber(width int) string {
	low := 1
	for i := 1; i < width; i++ {
		low *= 10
	}
	return fmt.Sprintf("%d", low+rand.IntN(low*9))
}
