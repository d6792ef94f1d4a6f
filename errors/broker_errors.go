package errors

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a lookup for a project key that was never
// registered.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project configuration not found: %s", e.Key)
}

// IncompleteConfigError indicates a registered project that is missing one
// or more of its OAuth credential fields.
type IncompleteConfigError struct {
	Key     string
	Missing []string
}

func (e *IncompleteConfigError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("project configuration incomplete: %s", e.Key)
	}
	return fmt.Sprintf("project configuration incomplete: %s (missing %s)", e.Key, strings.Join(e.Missing, ", "))
}

// TokenExchangeError indicates the provider rejected the code-for-token
// exchange. It carries the upstream HTTP status only; the Authorization
// header and client secret must never appear in the message.
type TokenExchangeError struct {
	StatusCode int
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: check that the authorization code is valid", e.StatusCode)
}

// InvalidInputError indicates a malformed or unverifiable caller-supplied
// value, such as a checkout session id that fails validation.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

// MissingParametersError indicates required request parameters were absent.
type MissingParametersError struct {
	Missing []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("missing required parameters: %s", strings.Join(e.Missing, ", "))
}

// IssuanceError indicates the entitlement store failed to produce a code.
type IssuanceError struct {
	Reason string
}

func (e *IssuanceError) Error() string {
	return fmt.Sprintf("entitlement issuance failed: %s", e.Reason)
}

func NewNotFound(key string) *NotFoundError {
	return &NotFoundError{Key: key}
}

func NewIncompleteConfig(key string, missing []string) *IncompleteConfigError {
	return &IncompleteConfigError{Key: key, Missing: missing}
}

func NewTokenExchange(statusCode int) *TokenExchangeError {
	return &TokenExchangeError{StatusCode: statusCode}
}

func NewInvalidInput(reason string) *InvalidInputError {
	return &InvalidInputError{Reason: reason}
}

func NewMissingParameters(missing ...string) *MissingParametersError {
	return &MissingParametersError{Missing: missing}
}

func NewIssuance(reason string) *IssuanceError {
	return &IssuanceError{Reason: reason}
}
