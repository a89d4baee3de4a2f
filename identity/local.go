package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"taskvault/api"
	"taskvault/store"
)

const minPasswordLen = 8

// Local is a credential provider backed by the user repository. It checks
// passwords with bcrypt, issues HS256 bearer tokens, and republishes the
// identity whenever the token is refreshed. One sign-in exists at a time;
// the last notification wins.
type Local struct {
	users  store.Users
	secret []byte
	ttl    time.Duration
	logger *log.Logger

	mu      sync.Mutex
	subs    map[int]func(*api.Identity)
	nextSub int
	current *api.Identity
	token   string
	stop    chan struct{}

	// deliverMu serializes notification delivery so subscribers observe
	// changes in publish order.
	deliverMu sync.Mutex
}

// NewLocal builds a provider over users. An empty secret is a
// configuration error; callers treat it as fatal at startup.
func NewLocal(users store.Users, secret string, tokenTTL time.Duration, logger *log.Logger) (*Local, error) {
	if secret == "" {
		return nil, errors.New("identity: jwt secret is not set")
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Local{
		users:  users,
		secret: []byte(secret),
		ttl:    tokenTTL,
		logger: logger,
		subs:   make(map[int]func(*api.Identity)),
	}, nil
}

// Subscribe registers fn and synchronously delivers the current state to
// it, so new consumers resolve out of their unknown state immediately.
func (l *Local) Subscribe(fn func(*api.Identity)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	current := l.current
	l.mu.Unlock()

	l.deliverMu.Lock()
	fn(current)
	l.deliverMu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*api.Identity, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &Error{Code: CodeMalformedEmail, Err: err}
	}
	u, err := l.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		// Same code as a wrong password so callers cannot probe for
		// registered emails.
		return nil, &Error{Code: CodeInvalidCredentials, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("identity: look up user: %w", err)
	}
	if u.Disabled {
		return nil, &Error{Code: CodeUserDisabled}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, &Error{Code: CodeInvalidCredentials, Err: err}
	}

	tok, err := l.issueToken(u)
	if err != nil {
		return nil, fmt.Errorf("identity: issue token: %w", err)
	}
	id := &api.Identity{ID: u.ID, Email: u.Email, Verified: u.Verified}

	l.mu.Lock()
	l.stopRefreshLocked()
	l.current = id
	l.token = tok
	l.stop = make(chan struct{})
	go l.refreshLoop(u.ID, l.stop)
	l.mu.Unlock()

	l.publish(id)
	return id, nil
}

func (l *Local) SignOut(_ context.Context) error {
	l.mu.Lock()
	l.stopRefreshLocked()
	l.current = nil
	l.token = ""
	l.mu.Unlock()
	l.publish(nil)
	return nil
}

// Register enrolls a new user. It does not sign the user in.
func (l *Local) Register(ctx context.Context, email, password string) (*api.Identity, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &Error{Code: CodeMalformedEmail, Err: err}
	}
	if len(password) < minPasswordLen {
		return nil, &Error{Code: CodeWeakPassword}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	u, err := l.users.CreateUser(ctx, email, string(hash))
	if errors.Is(err, store.ErrEmailTaken) {
		return nil, &Error{Code: CodeEmailTaken, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("identity: create user: %w", err)
	}
	return &api.Identity{ID: u.ID, Email: u.Email, Verified: u.Verified}, nil
}

// Token returns the bearer token for the current sign-in, or "".
func (l *Local) Token() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}

// Verify parses and validates a token issued by this provider.
func (l *Local) Verify(token string) (*api.Claims, error) {
	claims := &api.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return l.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("identity: verify token: %w", err)
	}
	return claims, nil
}

// Close stops the refresh loop. It does not publish a sign-out.
func (l *Local) Close() {
	l.mu.Lock()
	l.stopRefreshLocked()
	l.mu.Unlock()
}

func (l *Local) issueToken(u store.User) (string, error) {
	now := time.Now()
	claims := api.Claims{
		Email:    u.Email,
		Verified: u.Verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
}

// stopRefreshLocked must be called with l.mu held.
func (l *Local) stopRefreshLocked() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
}

// refreshLoop re-issues the token at half its lifetime and republishes the
// (possibly changed) identity, so subscribers track email or verification
// updates without polling themselves.
func (l *Local) refreshLoop(userID string, stop chan struct{}) {
	interval := l.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.refresh(userID)
		}
	}
}

func (l *Local) refresh(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	u, err := l.users.UserByID(ctx, userID)
	if err != nil || u.Disabled {
		if err != nil {
			l.logger.Warn("token refresh lost the signed-in user", "user", userID, "err", err)
		} else {
			l.logger.Warn("signed-in user was disabled, signing out", "user", userID)
		}
		l.SignOut(context.Background())
		return
	}

	tok, err := l.issueToken(u)
	if err != nil {
		l.logger.Warn("token refresh failed, keeping previous token", "user", userID, "err", err)
		return
	}
	id := &api.Identity{ID: u.ID, Email: u.Email, Verified: u.Verified}

	l.mu.Lock()
	if l.current == nil || l.current.ID != userID {
		l.mu.Unlock()
		return
	}
	l.current = id
	l.token = tok
	l.mu.Unlock()

	l.publish(id)
}

func (l *Local) publish(id *api.Identity) {
	l.mu.Lock()
	fns := make([]func(*api.Identity), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}
