// Package session holds the process-wide authentication state. Exactly one
// Session value exists at a time; the identity provider is its only writer
// and the last notification wins.
package session

import (
	"sync"

	"github.com/charmbracelet/log"

	"taskvault/api"
	"taskvault/identity"
)

// Holder subscribes to the identity provider and republishes the current
// Session to consumers. It starts in the unknown state and stays there
// until the provider's first notification; consumers must hold, not
// redirect, while unknown.
type Holder struct {
	provider identity.Provider
	logger   *log.Logger

	mu        sync.RWMutex
	session   api.Session
	unsub     func()
	disposed  bool
	watchers  map[int]func(api.Session)
	nextWatch int
}

// NewHolder builds a holder over provider. Call Init to start receiving
// notifications.
func NewHolder(provider identity.Provider, logger *log.Logger) *Holder {
	return &Holder{
		provider: provider,
		logger:   logger,
		session:  api.Session{State: api.SessionUnknown},
		watchers: make(map[int]func(api.Session)),
	}
}

// Init registers exactly one subscription with the provider. Calling it
// again is a no-op.
func (h *Holder) Init() {
	h.mu.Lock()
	if h.unsub != nil || h.disposed {
		h.mu.Unlock()
		return
	}
	// Temporary marker so a concurrent Init cannot double-subscribe while
	// the provider delivers its initial notification.
	h.unsub = func() {}
	h.mu.Unlock()

	unsub := h.provider.Subscribe(h.onChange)

	h.mu.Lock()
	h.unsub = unsub
	h.mu.Unlock()
}

// Dispose unsubscribes from the provider. After it returns, no further
// notifications reach this holder or its watchers.
func (h *Holder) Dispose() {
	h.mu.Lock()
	unsub := h.unsub
	h.unsub = nil
	h.disposed = true
	h.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Current returns the session as of the last provider notification.
func (h *Holder) Current() api.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

// Watch registers fn to be called on every session change, including the
// change that resolves the initial unknown state. The returned function
// cancels the registration.
func (h *Holder) Watch(fn func(api.Session)) (cancel func()) {
	h.mu.Lock()
	id := h.nextWatch
	h.nextWatch++
	h.watchers[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.watchers, id)
		h.mu.Unlock()
	}
}

func (h *Holder) onChange(id *api.Identity) {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	if id != nil {
		h.session = api.Session{State: api.SessionPresent, Identity: id}
	} else {
		h.session = api.Session{State: api.SessionAbsent}
	}
	sess := h.session
	fns := make([]func(api.Session), 0, len(h.watchers))
	for _, fn := range h.watchers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	h.logger.Debug("session changed", "state", sess.State)
	for _, fn := range fns {
		fn(sess)
	}
}
