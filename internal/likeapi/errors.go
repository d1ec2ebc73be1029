package likeapi

import (
	"fmt"
	"strings"
)

// limitMarker is the phrase the server puts in its error message when a
// global or per-tenant like quota is exhausted.
const limitMarker = "limit"

// IsLimitMessage reports whether an API error message signals quota exhaustion.
func IsLimitMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), limitMarker)
}

// APIError is a non-2xx response or an application-level error message.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// DecodeError reports a successful response whose body is not the expected JSON.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
