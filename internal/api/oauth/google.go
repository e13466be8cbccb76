package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/polkaapp/polka-api/internal/types"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleResolver resolves a Google OAuth access token via the userinfo endpoint.
type GoogleResolver struct {
	client      *http.Client
	userInfoURL string
}

func NewGoogleResolver(client *http.Client) *GoogleResolver {
	return &GoogleResolver{client: client, userInfoURL: googleUserInfoURL}
}

func (g *GoogleResolver) Name() string { return "google" }

func (g *GoogleResolver) Resolve(ctx context.Context, token string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building google userinfo request: %v", types.ErrResolutionFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google userinfo request: %v", types.ErrResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google userinfo returned status %d", types.ErrResolutionFailed, resp.StatusCode)
	}

	var data struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decoding google userinfo: %v", types.ErrResolutionFailed, err)
	}
	if data.ID == "" {
		return nil, fmt.Errorf("%w: google userinfo missing subject id", types.ErrResolutionFailed)
	}

	return &Profile{
		ProviderUserID: data.ID,
		Email:          data.Email,
		FirstName:      data.GivenName,
		LastName:       data.FamilyName,
		AvatarURL:      data.Picture,
		Verified:       data.VerifiedEmail,
	}, nil
}
