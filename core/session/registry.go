package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
)

// Registry owns the key->machine map. It guarantees at most one live
// request per key and reaps idle sessions in the background. Machines
// remove themselves on terminal transitions, so presence in the map
// means the request is live.
type Registry struct {
	deps        Deps
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[Key]*Machine
}

// NewRegistry builds an empty registry. idleTimeout bounds how long a
// session may sit without events before it expires.
func NewRegistry(deps Deps, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	return &Registry{
		deps:        deps,
		idleTimeout: idleTimeout,
		sessions:    make(map[Key]*Machine),
	}
}

// Create starts a new request for key. emoji, when non-empty, was
// supplied inline with the trigger and answers the first prompt. A
// second trigger while the first request is live returns
// ErrSessionAlreadyActive and leaves the existing machine untouched.
func (r *Registry) Create(ctx context.Context, key Key, ref MediaRef, emoji string) (*Machine, error) {
	r.mu.Lock()
	if _, exists := r.sessions[key]; exists {
		r.mu.Unlock()
		logger.Debug(ctx, "session", "session.reject_duplicate",
			slog.String("session", key.String()),
		)
		return nil, ErrSessionAlreadyActive
	}
	m := newMachine(ctx, key, ref, emoji, r.deps, r.remove)
	r.sessions[key] = m
	r.mu.Unlock()
	return m, nil
}

// Get returns the live machine for key, if any.
func (r *Registry) Get(key Key) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.sessions[key]
	return m, ok
}

// Active reports whether a live request exists for key.
func (r *Registry) Active(key Key) bool {
	_, ok := r.Get(key)
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run reaps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.reap(ctx, now)
		}
	}
}

// reap expires idle sessions. Machines are collected under the registry
// lock but expired outside it: an expiring machine re-enters the
// registry through its terminal callback.
func (r *Registry) reap(ctx context.Context, now time.Time) {
	r.mu.Lock()
	machines := make([]*Machine, 0, len(r.sessions))
	for _, m := range r.sessions {
		machines = append(machines, m)
	}
	r.mu.Unlock()

	expired := 0
	for _, m := range machines {
		if m.ExpireIfIdle(ctx, now, r.idleTimeout) {
			expired++
		}
	}
	if expired > 0 {
		logger.Info(ctx, "session", "session.reaped",
			slog.Int("expired", expired),
		)
	}
}

func (r *Registry) remove(key Key) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}
