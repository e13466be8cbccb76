package oauth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/polkaapp/polka-api/config"
	"github.com/polkaapp/polka-api/internal/types"
)

// WebFlow drives the browser authorize/callback OAuth dance through goth for
// the providers that support it. The resulting external user funnels into the
// same linking engine as the mobile token path.
type WebFlow struct {
	providers map[string]goth.Provider
}

// NewWebFlow builds goth providers for the configured web-capable providers.
// Apple's flow needs a generated client secret per request and is deliberately
// not offered here; Apple sign-in goes through the token path only.
func NewWebFlow(cfg config.OAuthConfig) *WebFlow {
	f := &WebFlow{providers: make(map[string]goth.Provider)}

	callback := func(name string) string {
		return strings.TrimRight(cfg.RedirectURL, "/") + "/" + name
	}
	scopes := func(name string) []string {
		return strings.Fields(cfg.Providers[name].Scope)
	}

	if cfg.Enabled("google") {
		p := cfg.Providers["google"]
		f.providers["google"] = google.New(p.ClientID, p.ClientSecret, callback("google"), scopes("google")...)
	}
	if cfg.Enabled("facebook") {
		p := cfg.Providers["facebook"]
		f.providers["facebook"] = facebook.New(p.ClientID, p.ClientSecret, callback("facebook"), scopes("facebook")...)
	}
	if cfg.Enabled("github") {
		p := cfg.Providers["github"]
		f.providers["github"] = github.New(p.ClientID, p.ClientSecret, callback("github"), scopes("github")...)
	}
	return f
}

// Supports reports whether a provider offers the web flow.
func (f *WebFlow) Supports(provider string) bool {
	_, ok := f.providers[provider]
	return ok
}

// AuthURL returns the provider's authorization URL carrying the given state.
func (f *WebFlow) AuthURL(provider, state string) (string, error) {
	p, ok := f.providers[provider]
	if !ok {
		return "", types.ErrUnsupportedProvider
	}
	sess, err := p.BeginAuth(state)
	if err != nil {
		return "", fmt.Errorf("%w: begin auth for %s: %v", types.ErrResolutionFailed, provider, err)
	}
	authURL, err := sess.GetAuthURL()
	if err != nil {
		return "", fmt.Errorf("%w: auth url for %s: %v", types.ErrResolutionFailed, provider, err)
	}
	return authURL, nil
}

// CompleteAuth exchanges the callback code and fetches the external user,
// returning the resolved profile plus the provider tokens to cache.
func (f *WebFlow) CompleteAuth(provider, code string) (*Profile, Credentials, error) {
	p, ok := f.providers[provider]
	if !ok {
		return nil, Credentials{}, types.ErrUnsupportedProvider
	}

	sess, err := p.BeginAuth("")
	if err != nil {
		return nil, Credentials{}, fmt.Errorf("%w: begin auth for %s: %v", types.ErrResolutionFailed, provider, err)
	}
	params := url.Values{}
	params.Set("code", code)
	if _, err := sess.Authorize(p, params); err != nil {
		return nil, Credentials{}, fmt.Errorf("%w: code exchange for %s: %v", types.ErrResolutionFailed, provider, err)
	}

	gothUser, err := p.FetchUser(sess)
	if err != nil {
		return nil, Credentials{}, fmt.Errorf("%w: fetch user for %s: %v", types.ErrResolutionFailed, provider, err)
	}

	profile, creds := fromGothUser(gothUser)
	return profile, creds, nil
}

func fromGothUser(u goth.User) (*Profile, Credentials) {
	firstName, lastName := u.FirstName, u.LastName
	if firstName == "" && u.Name != "" {
		firstName, lastName = splitName(u.Name)
	}
	profile := &Profile{
		ProviderUserID: u.UserID,
		Email:          u.Email,
		FirstName:      firstName,
		LastName:       lastName,
		AvatarURL:      u.AvatarURL,
		Verified:       u.Email != "",
	}
	creds := Credentials{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
	}
	if !u.ExpiresAt.IsZero() {
		expires := u.ExpiresAt
		creds.ExpiresAt = &expires
	}
	return profile, creds
}
