package main

import (
	"context"
	"encoding/json"
	"net/http"

	"taskvault/api"
	"taskvault/identity"
)

// loginHandler signs in with email/password. Failures answer with a mapped
// user-facing message, never the provider's own text.
func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.provider.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		s.logger.Warn("sign-in failed", "email", creds.Email, "err", err)
		writeJSON(w, authStatus(err), api.ErrorResponse{Error: identity.UserMessage(err)})
		return
	}

	resp := api.LoginResponse{Identity: *id}
	if ts, ok := s.provider.(identity.TokenSource); ok {
		resp.Token = ts.Token()
	}
	writeJSON(w, http.StatusOK, resp)
}

// registerHandler enrolls a new user. It does not sign the user in.
func (s *server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reg, ok := s.provider.(identity.Registrar)
	if !ok {
		http.Error(w, "Registration not supported", http.StatusNotImplemented)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := reg.Register(ctx, creds.Email, creds.Password)
	if err != nil {
		s.logger.Warn("registration failed", "email", creds.Email, "err", err)
		writeJSON(w, authStatus(err), api.ErrorResponse{Error: identity.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusCreated, api.RegisterResponse{ID: id.ID, Email: id.Email})
}

// logoutHandler signs out and redirects to the sign-in entry point. The
// redirect is unconditional; a failed sign-out is logged and the caller
// still lands on the sign-in page. The persisted task list is not cleared.
func (s *server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("sign-out failed", "err", err)
	}
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
}

// authStatus maps identity failure codes to HTTP statuses. Unrecognized
// failures read as a generic unauthorized.
func authStatus(err error) int {
	switch identity.CodeOf(err) {
	case identity.CodeMalformedEmail, identity.CodeWeakPassword:
		return http.StatusBadRequest
	case identity.CodeUserDisabled:
		return http.StatusForbidden
	case identity.CodeEmailTaken:
		return http.StatusConflict
	case identity.CodeInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusUnauthorized
	}
}
