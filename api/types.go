package api

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionState tells consumers what we currently know about sign-in.
type SessionState int

const (
	// SessionUnknown is the initial state, before the identity provider
	// has delivered its first notification. Consumers must not treat it
	// as signed-out.
	SessionUnknown SessionState = iota
	SessionPresent
	SessionAbsent
)

func (s SessionState) String() string {
	switch s {
	case SessionPresent:
		return "present"
	case SessionAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// Identity is the record issued by the identity provider for a signed-in
// principal. It is opaque to everything except the provider itself.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// Session is the process-wide authentication outcome. Identity is non-nil
// only when State is SessionPresent.
type Session struct {
	State    SessionState
	Identity *Identity
}

// Claims is the payload carried inside issued bearer tokens.
type Claims struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// Credentials is the body of login and register requests.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful sign-in.
type LoginResponse struct {
	Token    string   `json:"token,omitempty"`
	Identity Identity `json:"identity"`
}

// RegisterResponse is returned on a successful registration.
type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AddTaskRequest is the body of a task creation request.
type AddTaskRequest struct {
	Text string `json:"text"`
}

// TaskListResponse carries the full task list after any list operation.
type TaskListResponse struct {
	Tasks []string `json:"tasks"`
}

// ErrorResponse carries a user-safe failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
