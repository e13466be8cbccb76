package types

import "time"

// Brand is a fashion label users can mark as a favorite.
type Brand struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Logo        *string   `json:"logo,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Style is a curated fashion style (e.g. "casual", "streetwear").
type Style struct {
	ID          string    `json:"id" example:"streetwear"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `json:"image,omitempty"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
