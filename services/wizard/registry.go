package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Factory builds the controller of a new session.
type Factory func(id string) *Controller

type registryEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// Registry holds the live sessions. A session not used for ttl is torn
// down and forgotten.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewRegistry(factory Factory, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*registryEntry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create starts a new session.
func (r *Registry) Create() *Controller {
	id := uuid.NewString()
	c := r.factory(id)

	r.mu.Lock()
	r.sessions[id] = &registryEntry{controller: c, lastSeen: r.now()}
	r.mu.Unlock()

	r.logger.Debug("onboarding session created", zap.String("sessionId", id))
	return c
}

// Get returns the session with id and marks it used.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok && r.expired(e) {
		delete(r.sessions, id)
		r.mu.Unlock()
		e.controller.Teardown()
		return nil, eris.Wrapf(ErrSessionNotFound, "session %s expired", id)
	}
	if !ok {
		r.mu.Unlock()
		return nil, eris.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	e.lastSeen = r.now()
	r.mu.Unlock()
	return e.controller, nil
}

// Discard tears down and forgets the session with id.
func (r *Registry) Discard(id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		e.controller.Teardown()
		r.logger.Debug("onboarding session discarded", zap.String("sessionId", id))
	}
}

// Sweep evicts every expired session and returns how many were evicted.
func (r *Registry) Sweep() int {
	var stale []*Controller

	r.mu.Lock()
	for id, e := range r.sessions {
		if r.expired(e) {
			stale = append(stale, e.controller)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Teardown()
	}
	if len(stale) > 0 {
		r.logger.Info("evicted idle onboarding sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expired(e *registryEntry) bool {
	return r.ttl > 0 && r.now().Sub(e.lastSeen) > r.ttl
}
