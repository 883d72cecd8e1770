package pkgpush

import (
	"errors"
	"net/http"
	"strconv"
)

// Errors reported at construction, before any signing or network activity.
var (
	// ErrKeyRequired is returned by New when the API key is empty.
	ErrKeyRequired = errors.New("api key is required")
	// ErrSecretRequired is returned by New when the API secret is empty.
	ErrSecretRequired = errors.New("api secret is required")
)

// ErrBadSignature is wrapped by every Verifier failure: malformed header,
// stale timestamp, unknown key or signature mismatch.
var ErrBadSignature = errors.New("invalid signature")

// APIError represents a non-success response from the registry. Body carries
// the raw response text; the registry returns plain text on some failures, so
// no JSON shape is assumed.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "registry error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common registry responses.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the remote package does not exist (404).
	// This usually means the package was never initialized on the registry.
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the registry rejects the signature or
	// credentials (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when the credentials are valid but not
	// permitted to touch the package (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}
)
