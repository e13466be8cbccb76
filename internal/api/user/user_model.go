package user

import (
	"github.com/polkaapp/polka-api/internal/types"
)

// UpdateProfileRequest carries the mutable profile fields. Nil means "leave
// unchanged"; clients send only the fields they edit.
type UpdateProfileRequest struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Gender       *string `json:"gender,omitempty"`
	SelectedSize *string `json:"selected_size,omitempty"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
}

// ProfileResponse is the enriched profile the mobile app renders: the user row
// plus favorite brands and styles.
type ProfileResponse struct {
	types.User
	Brands            []types.Brand `json:"brands"`
	Styles            []types.Style `json:"styles"`
	IsProfileComplete bool          `json:"is_profile_complete"`
}

// CompletionStatus reports which onboarding fields are still missing.
type CompletionStatus struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields"`
}
