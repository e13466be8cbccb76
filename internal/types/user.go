package types

import "time"

// User represents one person-account. PasswordHash is nil for accounts created
// purely via OAuth; those still authenticate through any linked identity.
type User struct {
	ID           string    `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	Username     string    `json:"username" example:"johndoe"`
	Email        string    `json:"email" example:"john.doe@example.com"`
	PasswordHash *string   `json:"-"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	Gender       *string   `json:"gender,omitempty" example:"female"`
	SelectedSize *string   `json:"selected_size,omitempty" example:"M"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsProfileComplete mirrors the mobile app's onboarding gate: a profile counts
// as complete once both name fields are filled in.
func (u *User) IsProfileComplete() bool {
	return u.FirstName != nil && *u.FirstName != "" && u.LastName != nil && *u.LastName != ""
}

// UserSummary is the representation returned alongside freshly issued tokens.
type UserSummary struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	AvatarURL         *string   `json:"avatar_url,omitempty"`
	IsProfileComplete bool      `json:"is_profile_complete"`
	IsVerified        bool      `json:"is_verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Summary builds the wire representation of a user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		AvatarURL:         u.AvatarURL,
		IsProfileComplete: u.IsProfileComplete(),
		IsVerified:        u.IsVerified,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
