// Package edflex provides the client, mapper and error handling for the
// Edflex catalog API.
package edflex

import (
	"errors"
	"fmt"
)

// Sentinel errors for client-side failures.
var (
	// ErrConfig is returned by NewClient when the base URL, client id or
	// client secret is missing.
	ErrConfig = errors.New("edflex: missing client configuration")

	// ErrAuth is returned when the token endpoint does not yield a usable
	// access token.
	ErrAuth = errors.New("edflex: authentication failed")

	// ErrInvalidURL is returned when a package download URL is not a valid
	// absolute URL.
	ErrInvalidURL = errors.New("edflex: invalid package URL")

	// ErrInvalidContentID is returned when a requested content id fails
	// format validation. The whole call is rejected, never a partial result.
	ErrInvalidContentID = errors.New("edflex: invalid content id")

	// ErrInvalidResponse is returned when an expected JSON body fails to
	// decode.
	ErrInvalidResponse = errors.New("edflex: invalid response")
)

// APIError represents a logical error reported by the Edflex API, either via
// a non-2xx status or via an error envelope on a 2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("edflex: api error (status %d): %s", e.StatusCode, e.Message)
}
