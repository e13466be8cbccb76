package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/polkaapp/polka-api/app/observability/metrics"
	"github.com/polkaapp/polka-api/internal/api"
)

type contextKey string

const userIDKey contextKey = "userID"

// GetUserIDFromContext extracts the authenticated user ID placed in the
// request context by Authenticate.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// Middleware verifies bearer tokens on protected routes.
type Middleware struct {
	tokens  *TokenIssuer
	metrics *metrics.AppMetrics
	logger  *slog.Logger
}

func NewMiddleware(tokens *TokenIssuer, m *metrics.AppMetrics, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, metrics: m, logger: logger}
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the token subject in the request context. All failure modes return
// the same 401 body.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			m.record(r, "missing")
			api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := m.tokens.Verify(tokenString)
		if err != nil {
			m.logger.WarnContext(r.Context(), "Token verification failed", slog.String("path", r.URL.Path))
			m.record(r, "invalid")
			api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		m.record(r, "ok")
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) record(r *http.Request, status string) {
	if m.metrics == nil || m.metrics.TokenVerificationsTotal == nil {
		return
	}
	m.metrics.TokenVerificationsTotal.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("status", status)))
}
