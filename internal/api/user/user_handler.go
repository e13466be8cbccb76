package user

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

type UserHandler struct {
	service UserService
	logger  *slog.Logger
}

func NewUserHandler(service UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// GetProfile handles GET /user/profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "GetProfile")
	defer span.End()
	l := h.logger.With(slog.String("method", "GetProfile"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "User not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		l.ErrorContext(ctx, "Failed to load profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to load profile")
		return
	}

	span.SetStatus(codes.Ok, "Profile returned")
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateProfile handles PUT /user/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UpdateProfile")
	defer span.End()
	l := h.logger.With(slog.String("method", "UpdateProfile"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(ctx, userID, req)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to update profile")
		return
	}

	span.SetStatus(codes.Ok, "Profile updated")
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// GetCompletionStatus handles GET /user/profile/completion-status.
func (h *UserHandler) GetCompletionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	status, err := h.service.GetCompletionStatus(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to compute completion status", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to compute completion status")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, status)
}

// ListOAuthAccounts handles GET /user/oauth-accounts.
func (h *UserHandler) ListOAuthAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	accounts, err := h.service.ListOAuthAccounts(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list linked accounts", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list linked accounts")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, accounts)
}
