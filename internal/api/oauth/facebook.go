package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/polkaapp/polka-api/internal/types"
)

const facebookMeURL = "https://graph.facebook.com/me"

// FacebookResolver resolves a Facebook Graph API access token via /me.
type FacebookResolver struct {
	client *http.Client
	meURL  string
}

func NewFacebookResolver(client *http.Client) *FacebookResolver {
	return &FacebookResolver{client: client, meURL: facebookMeURL}
}

func (f *FacebookResolver) Name() string { return "facebook" }

func (f *FacebookResolver) Resolve(ctx context.Context, token string) (*Profile, error) {
	params := url.Values{}
	params.Set("fields", "id,email,first_name,last_name,picture")
	params.Set("access_token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.meURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building facebook request: %v", types.ErrResolutionFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: facebook graph request: %v", types.ErrResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: facebook graph returned status %d", types.ErrResolutionFailed, resp.StatusCode)
	}

	var data struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decoding facebook response: %v", types.ErrResolutionFailed, err)
	}
	if data.ID == "" {
		return nil, fmt.Errorf("%w: facebook response missing subject id", types.ErrResolutionFailed)
	}

	// Facebook requires a confirmed email on the account, so the profile
	// counts as verified.
	return &Profile{
		ProviderUserID: data.ID,
		Email:          data.Email,
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		AvatarURL:      data.Picture.Data.URL,
		Verified:       true,
	}, nil
}
