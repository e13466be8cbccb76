package router

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkaapp/polka-api/config"
	"github.com/polkaapp/polka-api/internal/api/auth"
)

func testRouter(t *testing.T) chi.Router {
	t.Helper()
	handler := auth.NewAuthHandler(nil, nil, nil, slog.Default())
	return SetupRouter(&Config{
		AuthHandler:            handler,
		AuthenticateMiddleware: func(next http.Handler) http.Handler { return next },
	})
}

// The callback route must accept the exact URL the system hands to providers,
// which is oauth.redirectURL + "/" + provider.
func TestCallbackRouteMatchesAdvertisedURL(t *testing.T) {
	cfg := config.OAuthConfig{
		RedirectURL: "http://localhost:8000/api/v1/auth/oauth/callback",
		Providers: map[string]config.OAuthProviderConfig{
			"google": {ClientID: "id", ClientSecret: "secret"},
		},
	}
	// Same construction NewWebFlow and Providers() use for the redirect URL.
	advertised := strings.TrimRight(cfg.RedirectURL, "/") + "/google"
	u, err := url.Parse(advertised)
	require.NoError(t, err)

	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, u.Path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Without a code parameter the handler rejects the request, but the route
	// itself must match.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteShapes(t *testing.T) {
	var routes []string
	err := chi.Walk(testRouter(t), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	require.NoError(t, err)

	assert.Contains(t, routes, "POST /api/v1/auth/oauth/login")
	assert.Contains(t, routes, "GET /api/v1/auth/oauth/providers")
	assert.Contains(t, routes, "GET /api/v1/auth/oauth/callback/{provider}")
	assert.Contains(t, routes, "GET /health")
}
