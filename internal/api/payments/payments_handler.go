package payments

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/polkaapp/polka-api/internal/api"
	"github.com/polkaapp/polka-api/internal/api/auth"
	"github.com/polkaapp/polka-api/internal/types"
)

type PaymentsHandler struct {
	service PaymentsService
	logger  *slog.Logger
}

func NewPaymentsHandler(service PaymentsService, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{service: service, logger: logger}
}

// CreateOrder handles POST /orders: creates a pending order plus a provider
// payment and returns the confirmation URL the client should redirect to.
func (h *PaymentsHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PaymentsHandler").Start(r.Context(), "CreateOrder")
	defer span.End()
	l := h.logger.With(slog.String("method", "CreateOrder"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateOrderRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	confirmation, err := h.service.CreateOrder(ctx, userID, req)
	if err != nil {
		if errors.Is(err, types.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to create order", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Order creation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, confirmation)
}

// GetOrder handles GET /orders/{id}.
func (h *PaymentsHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PaymentsHandler").Start(r.Context(), "GetOrder")
	defer span.End()
	l := h.logger.With(slog.String("method", "GetOrder"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	order, err := h.service.GetOrder(ctx, userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "order not found")
			return
		}
		l.ErrorContext(ctx, "Failed to load order", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Order lookup failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, order)
}

// Webhook handles POST /payments/webhook. The provider retries on non-2xx, so
// only transient failures return 5xx; a notification for an unknown order is
// acknowledged and dropped.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PaymentsHandler").Start(r.Context(), "Webhook")
	defer span.End()
	l := h.logger.With(slog.String("method", "Webhook"))

	if !IsTrustedSource(PeerAddr(r)) {
		l.WarnContext(ctx, "Webhook from untrusted source", slog.String("remoteAddr", PeerAddr(r)))
		span.SetStatus(codes.Error, "Untrusted source")
		api.ErrorResponse(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var notification WebhookNotification
	if err := api.DecodeJSONBody(w, r, &notification); err != nil {
		l.WarnContext(ctx, "Malformed webhook payload", slog.Any("error", err))
		span.SetStatus(codes.Error, "Malformed payload")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.HandleNotification(ctx, notification); err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			l.WarnContext(ctx, "Notification for unknown order, acknowledged")
			api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
		default:
			l.ErrorContext(ctx, "Failed to process notification", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Processing failed")
			api.ErrorResponse(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	span.SetStatus(codes.Ok, "Notification processed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}
