// Package oauth is the boundary to external identity providers. Resolvers
// turn a provider-issued credential into a verified profile; the account
// linking engine never talks to a concrete provider directly.
package oauth

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/polkaapp/polka-api/config"
)

// Profile carries the verified attributes a provider reports for a credential.
type Profile struct {
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	AvatarURL      string
	Verified       bool
}

// Credentials are the provider-side tokens cached on a linked account for
// later provider API calls. They are opaque to the linking engine.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Resolver verifies one provider's credential and returns the profile behind it.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, token string) (*Profile, error)
}

// Registry maps provider names to resolvers. Adding a provider means
// registering a resolver here; the linking engine stays untouched.
type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry builds the registry from the enabled-provider configuration.
func NewRegistry(cfg config.OAuthConfig, client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	r := &Registry{resolvers: make(map[string]Resolver)}
	if cfg.Enabled("google") {
		r.Register(NewGoogleResolver(client))
	}
	if cfg.Enabled("facebook") {
		r.Register(NewFacebookResolver(client))
	}
	if cfg.Enabled("github") {
		r.Register(NewGitHubResolver(client))
	}
	// Apple's token path verifies an identity token and needs no client
	// credentials, so presence of the provider key is enough.
	if _, ok := cfg.Providers["apple"]; ok {
		r.Register(NewAppleResolver())
	}
	return r
}

// Register adds or replaces a resolver.
func (r *Registry) Register(res Resolver) {
	r.resolvers[res.Name()] = res
}

// Lookup returns the resolver for a provider name.
func (r *Registry) Lookup(name string) (Resolver, bool) {
	res, ok := r.resolvers[name]
	return res, ok
}

// Names lists the registered providers in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.resolvers))
	for name := range r.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
