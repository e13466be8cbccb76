package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/polkaapp/polka-api/internal/api/auth"
	"github.com/polkaapp/polka-api/internal/api/catalog"
	"github.com/polkaapp/polka-api/internal/api/friends"
	"github.com/polkaapp/polka-api/internal/api/payments"
	"github.com/polkaapp/polka-api/internal/api/user"
)

// Config carries the handlers and middleware the router wires together.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UserHandler            *user.UserHandler
	CatalogHandler         *catalog.CatalogHandler
	FriendsHandler         *friends.FriendsHandler
	PaymentsHandler        *payments.PaymentsHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter wires all API routes. Server-wide middleware (request id,
// logging, recoverer) is applied before mounting this router in main.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/oauth/login", cfg.AuthHandler.OAuthLogin)
			r.Get("/auth/oauth/providers", cfg.AuthHandler.Providers)
			r.Get("/auth/oauth/{provider}/authorize", cfg.AuthHandler.OAuthAuthorize)
			// Must stay the suffix form: the redirect URL handed to providers
			// is oauth.redirectURL + "/" + provider.
			r.Get("/auth/oauth/callback/{provider}", cfg.AuthHandler.OAuthCallback)

			r.Get("/brands", cfg.CatalogHandler.ListBrands)
			r.Get("/styles", cfg.CatalogHandler.ListStyles)

			// Guarded by the source-IP allowlist instead of a session token.
			r.Post("/payments/webhook", cfg.PaymentsHandler.Webhook)
		})

		// Protected routes.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Get("/auth/me", cfg.AuthHandler.Me)

			r.Get("/user/profile", cfg.UserHandler.GetProfile)
			r.Put("/user/profile", cfg.UserHandler.UpdateProfile)
			r.Get("/user/profile/completion-status", cfg.UserHandler.GetCompletionStatus)
			r.Get("/user/oauth-accounts", cfg.UserHandler.ListOAuthAccounts)

			r.Post("/user/brands", cfg.CatalogHandler.SetUserBrands)
			r.Post("/user/styles", cfg.CatalogHandler.SetUserStyles)

			r.Post("/orders", cfg.PaymentsHandler.CreateOrder)
			r.Get("/orders/{id}", cfg.PaymentsHandler.GetOrder)

			r.Get("/friends", cfg.FriendsHandler.ListFriends)
			r.Get("/friends/requests", cfg.FriendsHandler.ListRequests)
			r.Post("/friends/requests", cfg.FriendsHandler.SendRequest)
			r.Post("/friends/requests/{id}/accept", cfg.FriendsHandler.AcceptRequest)
			r.Post("/friends/requests/{id}/reject", cfg.FriendsHandler.RejectRequest)
			r.Post("/friends/requests/{id}/cancel", cfg.FriendsHandler.CancelRequest)
		})
	})

	return r
}
