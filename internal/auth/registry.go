package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"profile-portal/internal/session"
)

// BackendFactory builds the backend view of one session's token store.
type BackendFactory func(store session.Store) Backend

type RegistryConfig struct {
	Sessions    session.Backend
	Backends    BackendFactory
	SessionTTL  time.Duration
	IdleTimeout time.Duration
	Machine     Options
	Logger      *slog.Logger
}

type registryEntry struct {
	machine  *Machine
	lastSeen time.Time
}

// Registry owns one Machine per browser session id.
type Registry struct {
	mu       sync.Mutex
	machines map[string]*registryEntry
	cfg      RegistryConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}

	return &Registry{
		machines: make(map[string]*registryEntry),
		cfg:      cfg,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Get returns the machine of sessionID, creating and starting it on first
// use. A start failure is already reflected in the machine's State.
func (r *Registry) Get(ctx context.Context, sessionID string) *Machine {
	r.mu.Lock()
	if entry, ok := r.machines[sessionID]; ok {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		return entry.machine
	}

	store := session.Scoped(r.cfg.Sessions, sessionID, r.cfg.SessionTTL)
	opts := r.cfg.Machine
	opts.SessionID = sessionID
	if opts.Logger == nil {
		opts.Logger = r.logger
	}

	machine := New(store, r.cfg.Backends(store), opts)
	r.machines[sessionID] = &registryEntry{machine: machine, lastSeen: r.now()}
	r.mu.Unlock()

	if err := machine.Start(context.WithoutCancel(ctx)); err != nil {
		var authErr *Error
		if !errors.As(err, &authErr) {
			r.logger.Warn("session start failed", slog.String("error", err.Error()))
		}
	}

	return machine
}

// Remove closes and forgets the machine of sessionID. Stored tokens are
// not touched.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	entry, ok := r.machines[sessionID]
	delete(r.machines, sessionID)
	r.mu.Unlock()

	if ok {
		entry.machine.Close()
	}
}

// Sweep closes machines idle for longer than the idle timeout and not
// waiting on the backend. It returns how many were evicted.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var idle []*Machine
	for id, entry := range r.machines {
		if entry.lastSeen.After(cutoff) || entry.machine.Busy() {
			continue
		}
		idle = append(idle, entry.machine)
		delete(r.machines, id)
	}
	r.mu.Unlock()

	for _, machine := range idle {
		machine.Close()
	}

	return len(idle)
}

func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := r.Sweep(); evicted > 0 {
					r.logger.Debug("idle sessions evicted", slog.Int("count", evicted))
				}
			}
		}
	}()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.machines)
}

// Close closes every machine.
func (r *Registry) Close() {
	r.mu.Lock()
	machines := make([]*Machine, 0, len(r.machines))
	for id, entry := range r.machines {
		machines = append(machines, entry.machine)
		delete(r.machines, id)
	}
	r.mu.Unlock()

	for _, machine := range machines {
		machine.Close()
	}
}
