package types

import "time"

// OAuthAccount binds a local user to one external provider identity.
// The pair (Provider, ProviderUserID) is globally unique across all users;
// the database constraint is the authoritative guard.
type OAuthAccount struct {
	ID             string     `json:"id"`
	UserID         string     `json:"-"`
	Provider       string     `json:"provider" example:"google"`
	ProviderUserID string     `json:"-"`
	AccessToken    *string    `json:"-"`
	RefreshToken   *string    `json:"-"`
	ExpiresAt      *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
