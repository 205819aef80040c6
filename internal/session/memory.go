package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"profile-portal/internal/model"
)

type memoryEntry struct {
	tokens    Tokens
	expiresAt time.Time
}

// Memory keeps sessions in process. Entries vanish on restart, which matches
// the browser-session scope of the cookie that points at them.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *Memory) Load(_ context.Context, id string) (Tokens, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || !m.now().Before(entry.expiresAt) {
		return Tokens{}, model.ErrSessionNotFound
	}

	return entry.tokens, nil
}

func (m *Memory) Store(_ context.Context, id string, tokens Tokens, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[id] = memoryEntry{tokens: tokens, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// CleanExpired drops expired entries and reports how many were removed.
func (m *Memory) CleanExpired(_ context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}

	return removed, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

type expiredCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// StartJanitor removes expired sessions every interval until ctx is done.
func StartJanitor(ctx context.Context, backend Backend, interval time.Duration) {
	cleaner, ok := backend.(expiredCleaner)
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := cleaner.CleanExpired(ctx)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Debug("expired sessions removed", "count", removed)
			}
		}
	}
}
