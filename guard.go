package main

import (
	"context"
	"net/http"

	"taskvault/api"
	"taskvault/session"
)

type contextKey string

const identityKey contextKey = "identity"

// signInPath is where unauthenticated requests are sent.
const signInPath = "/login"

// requireSession is the route guard. Present passes through with the
// identity in the request context, absent redirects to the sign-in entry
// point without ever running next, and unknown holds: no redirect, no
// next, just a retryable 503 until the provider's first notification
// lands. Holding while unknown is what prevents the redirect flicker a
// two-state guard would have.
func requireSession(h *session.Holder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := h.Current()
		switch sess.State {
		case api.SessionPresent:
			ctx := context.WithValue(r.Context(), identityKey, sess.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		case api.SessionAbsent:
			http.Redirect(w, r, signInPath, http.StatusSeeOther)
		default:
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session state pending", http.StatusServiceUnavailable)
		}
	})
}

// identityFrom returns the identity the guard stored in ctx, or nil.
func identityFrom(ctx context.Context) *api.Identity {
	id, _ := ctx.Value(identityKey).(*api.Identity)
	return id
}
