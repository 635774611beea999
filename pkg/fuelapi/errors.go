package fuelapi

import "fmt"

// AuthError is returned when the client-credential exchange is rejected.
// The access token is never left silently empty; construction fails instead.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: status %d: %s", e.StatusCode, e.Body)
}

// UpstreamError is returned when a price query comes back with a non-200
// status. It carries the status code and raw body for observability.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed: status %d: %s", e.StatusCode, e.Body)
}
