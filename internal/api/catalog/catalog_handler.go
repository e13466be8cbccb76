package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/polkaapp/polka-api/internal/api"
	"github.com/polkaapp/polka-api/internal/api/auth"
	"github.com/polkaapp/polka-api/internal/types"
)

type SetBrandsRequest struct {
	BrandIDs []int `json:"brand_ids"`
}

type SetStylesRequest struct {
	StyleIDs []string `json:"style_ids"`
}

type CatalogHandler struct {
	service CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(service CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, logger: logger}
}

// ListBrands handles GET /brands.
func (h *CatalogHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.ListBrands(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list brands", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list brands")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, brands)
}

// ListStyles handles GET /styles.
func (h *CatalogHandler) ListStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := h.service.ListStyles(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list styles", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list styles")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, styles)
}

// SetUserBrands handles POST /user/brands with replace-set semantics.
func (h *CatalogHandler) SetUserBrands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SetBrandsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SetUserBrands(ctx, userID, req.BrandIDs); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "one or more brands do not exist")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to set favorite brands", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to set favorite brands")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

// SetUserStyles handles POST /user/styles with replace-set semantics.
func (h *CatalogHandler) SetUserStyles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SetStylesRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SetUserStyles(ctx, userID, req.StyleIDs); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "one or more styles do not exist")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to set favorite styles", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to set favorite styles")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}
