package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/polkaapp/polka-api/app/observability/metrics"
	"github.com/polkaapp/polka-api/internal/api"
	"github.com/polkaapp/polka-api/internal/api/oauth"
	"github.com/polkaapp/polka-api/internal/types"
)

type AuthHandler struct {
	service AuthService
	webflow *oauth.WebFlow
	metrics *metrics.AppMetrics
	logger  *slog.Logger
}

// NewAuthHandler wires the HTTP surface of the identity subsystem.
// metrics may be nil, in which case no instruments are recorded.
func NewAuthHandler(service AuthService, webflow *oauth.WebFlow, m *metrics.AppMetrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		webflow: webflow,
		metrics: m,
		logger:  logger,
	}
}

func (h *AuthHandler) count(r *http.Request, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if h.metrics == nil || c == nil {
		return
	}
	c.Add(r.Context(), 1, metric.WithAttributes(attrs...))
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register")
	defer span.End()
	l := h.logger.With(slog.String("method", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Register(ctx, req)
	if err != nil {
		h.count(r, h.metricRegister(), attribute.String("status", "error"))
		h.writeAuthError(w, r, l, span, err, "Registration failed")
		return
	}

	h.count(r, h.metricRegister(), attribute.String("status", "ok"))
	l.InfoContext(ctx, "User registered", slog.String("userID", result.User.ID))
	span.SetStatus(codes.Ok, "User registered")
	api.WriteJSONResponse(w, r, http.StatusCreated, toAuthResponse(result))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login")
	defer span.End()
	l := h.logger.With(slog.String("method", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		h.count(r, h.metricLogin(), attribute.String("status", "error"))
		h.writeAuthError(w, r, l, span, err, "Login failed")
		return
	}

	h.count(r, h.metricLogin(), attribute.String("status", "ok"))
	span.SetStatus(codes.Ok, "Login succeeded")
	api.WriteJSONResponse(w, r, http.StatusOK, toAuthResponse(result))
}

// OAuthLogin handles POST /auth/oauth/login. The client obtained a provider access
// token (or, for Apple, an identity token) natively and exchanges it here for
// a session token.
func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "OAuthLogin")
	defer span.End()
	l := h.logger.With(slog.String("method", "OAuthLogin"))

	var req OAuthLoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("oauth.provider", req.Provider))

	result, err := h.service.OAuthLogin(ctx, req.Provider, req.Token)
	if err != nil {
		h.count(r, h.metricOAuth(), attribute.String("provider", req.Provider), attribute.String("status", "error"))
		h.writeAuthError(w, r, l, span, err, "OAuth login failed")
		return
	}

	h.count(r, h.metricOAuth(), attribute.String("provider", req.Provider), attribute.String("status", "ok"))
	span.SetStatus(codes.Ok, "OAuth login succeeded")
	api.WriteJSONResponse(w, r, http.StatusOK, toAuthResponse(result))
}

// Providers handles GET /auth/oauth/providers.
func (h *AuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	infos := h.service.Providers()
	if infos == nil {
		infos = []ProviderInfo{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, infos)
}

// OAuthAuthorize handles GET /auth/oauth/{provider}/authorize. It redirects
// the browser to the provider's consent page; used by web clients only.
func (h *AuthHandler) OAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "OAuthAuthorize")
	defer span.End()
	l := h.logger.With(slog.String("method", "OAuthAuthorize"))

	provider := r.PathValue("provider")
	state := r.URL.Query().Get("state")
	span.SetAttributes(attribute.String("oauth.provider", provider))

	url, err := h.webflow.AuthURL(provider, state)
	if err != nil {
		l.WarnContext(ctx, "Cannot start web flow", slog.String("provider", provider), slog.Any("error", err))
		span.SetStatus(codes.Error, "Cannot start web flow")
		api.ErrorResponse(w, r, http.StatusBadRequest, "unsupported provider")
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// OAuthCallback handles GET /auth/oauth/callback/{provider}. The provider
// redirects here with an authorization code; the handler completes the
// exchange and links the resolved identity.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "OAuthCallback")
	defer span.End()
	l := h.logger.With(slog.String("method", "OAuthCallback"))

	provider := r.PathValue("provider")
	code := r.URL.Query().Get("code")
	span.SetAttributes(attribute.String("oauth.provider", provider))

	if code == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "missing authorization code")
		return
	}

	profile, creds, err := h.webflow.CompleteAuth(provider, code)
	if err != nil {
		l.WarnContext(ctx, "Code exchange failed", slog.String("provider", provider), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Code exchange failed")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "could not verify provider credentials")
		return
	}

	result, err := h.service.LinkExternalIdentity(ctx, provider, profile, creds)
	if err != nil {
		h.count(r, h.metricOAuth(), attribute.String("provider", provider), attribute.String("status", "error"))
		h.writeAuthError(w, r, l, span, err, "OAuth callback failed")
		return
	}

	h.count(r, h.metricOAuth(), attribute.String("provider", provider), attribute.String("status", "ok"))
	span.SetStatus(codes.Ok, "OAuth callback succeeded")
	api.WriteJSONResponse(w, r, http.StatusOK, toAuthResponse(result))
}

// Logout handles POST /auth/logout. Session tokens are stateless and expire on
// their own, so there is nothing to revoke server side. The endpoint exists so
// clients have a uniform place to end a session while discarding the token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
}

// Me handles GET /auth/me for the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Me")
	defer span.End()
	l := h.logger.With(slog.String("method", "Me"))

	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.service.GetUserByID(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load user")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to load user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// writeAuthError maps service errors to HTTP responses. Authentication
// failures stay deliberately unspecific.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, l *slog.Logger, span trace.Span, err error, logMsg string) {
	switch {
	case errors.Is(err, types.ErrValidation):
		l.WarnContext(r.Context(), logMsg, slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrConflict):
		l.WarnContext(r.Context(), logMsg, slog.Any("error", err))
		span.SetStatus(codes.Error, "Conflict")
		api.ErrorResponse(w, r, http.StatusConflict, "email or username already taken")
	case errors.Is(err, types.ErrUnauthenticated):
		l.WarnContext(r.Context(), logMsg)
		span.SetStatus(codes.Error, "Unauthenticated")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, types.ErrUnsupportedProvider):
		l.WarnContext(r.Context(), logMsg)
		span.SetStatus(codes.Error, "Unsupported provider")
		api.ErrorResponse(w, r, http.StatusBadRequest, "unsupported provider")
	case errors.Is(err, types.ErrResolutionFailed):
		l.WarnContext(r.Context(), logMsg, slog.Any("error", err))
		span.SetStatus(codes.Error, "Resolution failed")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "could not verify provider credentials")
	default:
		l.ErrorContext(r.Context(), logMsg, slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Internal error")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func (h *AuthHandler) metricLogin() metric.Int64Counter {
	if h.metrics == nil {
		return nil
	}
	return h.metrics.LoginRequestsTotal
}

func (h *AuthHandler) metricRegister() metric.Int64Counter {
	if h.metrics == nil {
		return nil
	}
	return h.metrics.RegisterRequestsTotal
}

func (h *AuthHandler) metricOAuth() metric.Int64Counter {
	if h.metrics == nil {
		return nil
	}
	return h.metrics.OAuthLoginRequestsTotal
}

func toAuthResponse(result *LoginResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User.Summary(),
	}
}
