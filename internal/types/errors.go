package types

import "errors"

// Sentinel errors shared across services. Wrap them with context at the call
// site and match with errors.Is at the HTTP boundary.
var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthenticated = errors.New("authentication required or invalid credentials")
var ErrForbidden = errors.New("action forbidden")
var ErrValidation = errors.New("validation failed")
var ErrInvalidToken = errors.New("invalid or expired token")
var ErrUnsupportedProvider = errors.New("unsupported oauth provider")
var ErrResolutionFailed = errors.New("could not resolve external identity")
