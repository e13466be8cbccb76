package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/polkaapp/polka-api/internal/types"
)

const githubAPIBaseURL = "https://api.github.com"

// GitHubResolver resolves a GitHub OAuth token via /user, preferring the
// primary address from /user/emails over the public profile email.
type GitHubResolver struct {
	client  *http.Client
	baseURL string
}

func NewGitHubResolver(client *http.Client) *GitHubResolver {
	return &GitHubResolver{client: client, baseURL: githubAPIBaseURL}
}

func (g *GitHubResolver) Name() string { return "github" }

func (g *GitHubResolver) Resolve(ctx context.Context, token string) (*Profile, error) {
	var userData struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := g.get(ctx, token, "/user", &userData); err != nil {
		return nil, err
	}
	if userData.ID == 0 {
		return nil, fmt.Errorf("%w: github response missing subject id", types.ErrResolutionFailed)
	}

	email := userData.Email
	var emails []struct {
		Email   string `json:"email"`
		Primary bool   `json:"primary"`
	}
	// The profile email can be hidden; the emails endpoint still reports the
	// primary one under the user:email scope. Failure here is non-fatal.
	if err := g.get(ctx, token, "/user/emails", &emails); err == nil {
		for _, e := range emails {
			if e.Primary {
				email = e.Email
				break
			}
		}
	}

	firstName, lastName := splitName(userData.Name)

	return &Profile{
		ProviderUserID: fmt.Sprintf("%d", userData.ID),
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		AvatarURL:      userData.AvatarURL,
		Verified:       true,
	}, nil
}

func (g *GitHubResolver) get(ctx context.Context, token, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: building github request: %v", types.ErrResolutionFailed, err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: github request %s: %v", types.ErrResolutionFailed, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: github %s returned status %d", types.ErrResolutionFailed, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding github %s response: %v", types.ErrResolutionFailed, path, err)
	}
	return nil
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}
