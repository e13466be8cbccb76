package friends

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/polkaapp/polka-api/internal/api"
	"github.com/polkaapp/polka-api/internal/api/auth"
	"github.com/polkaapp/polka-api/internal/types"
)

type SendRequestBody struct {
	RecipientID string `json:"recipient_id"`
}

type FriendsHandler struct {
	service FriendsService
	logger  *slog.Logger
}

func NewFriendsHandler(service FriendsService, logger *slog.Logger) *FriendsHandler {
	return &FriendsHandler{service: service, logger: logger}
}

// SendRequest handles POST /friends/requests.
func (h *FriendsHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var body SendRequestBody
	if err := api.DecodeJSONBody(w, r, &body); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if body.RecipientID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "recipient_id is required")
		return
	}

	request, err := h.service.SendRequest(ctx, userID, body.RecipientID)
	if err != nil {
		h.writeError(w, r, err, "Failed to send friend request")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, request)
}

// AcceptRequest handles POST /friends/requests/{id}/accept.
func (h *FriendsHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.AcceptRequest, "Failed to accept friend request")
}

// RejectRequest handles POST /friends/requests/{id}/reject.
func (h *FriendsHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.RejectRequest, "Failed to reject friend request")
}

// CancelRequest handles POST /friends/requests/{id}/cancel.
func (h *FriendsHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelRequest, "Failed to cancel friend request")
}

// ListFriends handles GET /friends.
func (h *FriendsHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	friends, err := h.service.ListFriends(ctx, userID)
	if err != nil {
		h.writeError(w, r, err, "Failed to list friends")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, friends)
}

// ListRequests handles GET /friends/requests?direction=sent|received.
func (h *FriendsHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	direction := r.URL.Query().Get("direction")
	if direction == "" {
		direction = "received"
	}

	requests, err := h.service.ListRequests(ctx, userID, direction)
	if err != nil {
		h.writeError(w, r, err, "Failed to list friend requests")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, requests)
}

func (h *FriendsHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, userID, requestID string) error, logMsg string) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	requestID := r.PathValue("id")
	if requestID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "request id is required")
		return
	}

	if err := op(ctx, userID, requestID); err != nil {
		h.writeError(w, r, err, logMsg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *FriendsHandler) writeError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, types.ErrValidation):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "friend request not found")
	case errors.Is(err, types.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "not allowed")
	case errors.Is(err, types.ErrConflict):
		api.ErrorResponse(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), logMsg, slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "internal server error")
	}
}
