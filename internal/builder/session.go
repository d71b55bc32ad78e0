package builder

import (
	"sync"
	"time"

	"NYCU-SDC/playbook-builder-backend/internal"

	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultSessionIdleTimeout = 30 * time.Minute
	maxSweepInterval          = time.Minute
)

type ControllerFactory func(tenantID uuid.UUID) *Controller

type SessionsOption func(*Sessions)

// WithIdleTimeout sets how long a session may go untouched before a sweep
// closes it. Zero keeps sessions until they are closed explicitly.
func WithIdleTimeout(d time.Duration) SessionsOption {
	return func(s *Sessions) {
		s.idleTimeout = d
	}
}

func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		s.now = now
	}
}

type sessionEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// Sessions keeps the open editing sessions of all tenants in memory. A
// session is only visible to the tenant that opened it.
type Sessions struct {
	logger      *zap.Logger
	factory     ControllerFactory
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
}

func NewSessions(logger *zap.Logger, factory ControllerFactory, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		logger:      logger,
		factory:     factory,
		idleTimeout: DefaultSessionIdleTimeout,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*sessionEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFactory builds controllers backed by store with the given options.
func NewStoreFactory(logger *zap.Logger, store Store, opts ...Option) ControllerFactory {
	return func(tenantID uuid.UUID) *Controller {
		return NewController(logger, store, tenantID, opts...)
	}
}

func (s *Sessions) Open(tenantID uuid.UUID) (uuid.UUID, *Controller) {
	id := uuid.New()
	controller := s.factory(tenantID)

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{controller: controller, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debug("builder session opened", zap.String("session_id", id.String()), zap.String("tenant_id", tenantID.String()))

	return id, controller
}

// Get returns the session and marks it as used.
func (s *Sessions) Get(tenantID, sessionID uuid.UUID) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok || entry.controller.TenantID() != tenantID {
		return nil, internal.ErrSessionNotFound
	}
	entry.lastSeen = s.now()
	return entry.controller, nil
}

func (s *Sessions) Close(tenantID, sessionID uuid.UUID) error {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if !ok || entry.controller.TenantID() != tenantID {
		s.mu.Unlock()
		return internal.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	entry.controller.Close()

	s.logger.Debug("builder session closed", zap.String("session_id", sessionID.String()), zap.String("tenant_id", tenantID.String()))

	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle closes every session untouched for longer than the idle timeout
// and reports how many were closed.
func (s *Sessions) EvictIdle() int {
	if s.idleTimeout <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	var idle []*Controller
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			idle = append(idle, entry.controller)
			delete(s.sessions, id)
			s.logger.Debug("builder session expired", zap.String("session_id", id.String()), zap.String("tenant_id", entry.controller.TenantID().String()))
		}
	}
	s.mu.Unlock()

	for _, controller := range idle {
		controller.Close()
	}

	return len(idle)
}

// StartSweeper evicts idle sessions in the background until the returned
// stop func is called. It does nothing when the idle timeout is zero.
func (s *Sessions) StartSweeper() (stop func()) {
	if s.idleTimeout <= 0 {
		return func() {}
	}

	interval := min(s.idleTimeout, maxSweepInterval)

	scheduler := rcron.New()
	scheduler.Schedule(rcron.Every(interval), rcron.FuncJob(func() {
		if n := s.EvictIdle(); n > 0 {
			s.logger.Info("Expired idle builder sessions", zap.Int("count", n), zap.Duration("idle_timeout", s.idleTimeout))
		}
	}))
	scheduler.Start()

	return func() {
		<-scheduler.Stop().Done()
	}
}

// CloseAll ends every open session, used on shutdown.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*sessionEntry)
	s.mu.Unlock()

	for _, entry := range sessions {
		entry.controller.Close()
	}
}
