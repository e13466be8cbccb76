package auth

import (
	"time"

	"github.com/polkaapp/polka-api/internal/types"
)

// RegisterRequest is the register request body.
type RegisterRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// LoginRequest is the password login request body. Identifier accepts either
// an email address or a username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// OAuthLoginRequest is the social login request body for the mobile token path.
type OAuthLoginRequest struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

// AuthResponse is returned by every endpoint that issues a session token.
type AuthResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      types.UserSummary `json:"user"`
}

// LoginResult is the service-level counterpart of AuthResponse.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *types.User
}

// ProviderInfo describes one enabled OAuth provider for client bootstrapping.
type ProviderInfo struct {
	Provider    string `json:"provider"`
	ClientID    string `json:"client_id"`
	RedirectURL string `json:"redirect_url"`
	Scope       string `json:"scope"`
}
