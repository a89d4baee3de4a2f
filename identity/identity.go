// Package identity defines the identity service boundary: credential
// checks, sign-out, and pushed notifications on sign-in state changes.
package identity

import (
	"context"
	"errors"
	"fmt"

	"taskvault/api"
)

// Code classifies identity failures. Codes are stable machine identifiers;
// the text shown to users comes from UserMessage, never from the raw error.
type Code string

const (
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeMalformedEmail     Code = "malformed_email"
	CodeUserDisabled       Code = "user_disabled"
	CodeEmailTaken         Code = "email_taken"
	CodeWeakPassword       Code = "weak_password"
)

// Error is a coded identity failure. Err holds internal detail for logs.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the failure code from err, or "" when err carries none.
func CodeOf(err error) Code {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// UserMessage maps an identity failure to text safe to show. Unrecognized
// failures get a generic message so internal diagnostics never leak.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case CodeInvalidCredentials:
		return "invalid email or password"
	case CodeMalformedEmail:
		return "that does not look like an email address"
	case CodeUserDisabled:
		return "this account has been disabled"
	case CodeEmailTaken:
		return "an account with this email already exists"
	case CodeWeakPassword:
		return "password must be at least 8 characters"
	default:
		return "sign-in failed, please try again"
	}
}

// Provider is the identity service consumed by the rest of the process.
type Provider interface {
	// Subscribe registers fn to receive sign-in state changes. fn gets the
	// identity on sign-in (and on token refresh) and nil on sign-out. The
	// returned handle unregisters fn; after it returns, fn is never
	// called again.
	Subscribe(fn func(*api.Identity)) (unsubscribe func())
	// SignIn checks the credentials and, on success, publishes the
	// identity to subscribers and returns it.
	SignIn(ctx context.Context, email, password string) (*api.Identity, error)
	// SignOut ends the current sign-in and publishes nil to subscribers.
	SignOut(ctx context.Context) error
}

// Registrar is implemented by providers that support local enrollment.
type Registrar interface {
	Register(ctx context.Context, email, password string) (*api.Identity, error)
}

// TokenSource is implemented by providers that issue bearer tokens for the
// current sign-in.
type TokenSource interface {
	Token() string
}
