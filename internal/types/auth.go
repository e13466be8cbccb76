package types

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT claim set carried by access tokens. The subject is the
// user id; everything else rides on RegisteredClaims.
type Claims struct {
	jwt.RegisteredClaims
}

// Response is the generic success/error envelope for simple endpoints.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
