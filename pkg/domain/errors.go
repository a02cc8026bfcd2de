package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a contact has no stored session.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoAccount is returned when the proposal backend has no bank-account history for a client.
var ErrNoAccount = &NotFoundError{Resource: "bank account"}

// NetworkError is a transport failure that survived the retry budget.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means a provider refused our credentials or issued no token.
type AuthError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: authentication failed: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProviderError is a business-rule rejection or non-retryable HTTP failure.
// Message carries the upstream text verbatim; callers branch on it.
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: status %d code %s: %s", e.Provider, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

// ValidationError flags bad user input. Always recoverable by re-prompting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError flags a missing upstream record.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
	}
	return e.Resource + " not found"
}

// Is matches any NotFoundError for the same resource.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && t.Resource == e.Resource
}
