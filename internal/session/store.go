// Package session keeps the backend token pair of each browser session on
// the server side.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"profile-portal/internal/model"
)

type Tokens struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

func (t Tokens) Empty() bool {
	return strings.TrimSpace(t.AccessToken) == "" && strings.TrimSpace(t.RefreshToken) == ""
}

// Store is the token storage of a single browser session. Every write or
// clear is visible to the next read.
type Store interface {
	Save(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
	HasToken(ctx context.Context) bool
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
}

// Backend persists token pairs keyed by browser session id.
// Load returns model.ErrSessionNotFound for unknown or expired ids.
type Backend interface {
	Load(ctx context.Context, id string) (Tokens, error)
	Store(ctx context.Context, id string, tokens Tokens, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type scopedStore struct {
	backend Backend
	id      string
	ttl     time.Duration
}

// Scoped binds backend to one session id. ttl caps how long saved tokens
// live; see Lifetime.
func Scoped(backend Backend, id string, ttl time.Duration) Store {
	return &scopedStore{backend: backend, id: id, ttl: ttl}
}

func (s *scopedStore) Save(ctx context.Context, tokens Tokens) error {
	if tokens.Empty() {
		return s.Clear(ctx)
	}

	ttl := Lifetime(tokens, s.ttl, time.Now())
	if err := s.backend.Store(ctx, s.id, tokens, ttl); err != nil {
		return fmt.Errorf("save session tokens: %w", err)
	}

	return nil
}

func (s *scopedStore) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("clear session tokens: %w", err)
	}

	return nil
}

func (s *scopedStore) HasToken(ctx context.Context) bool {
	return s.AccessToken(ctx) != ""
}

func (s *scopedStore) AccessToken(ctx context.Context) string {
	return s.load(ctx).AccessToken
}

func (s *scopedStore) RefreshToken(ctx context.Context) string {
	return s.load(ctx).RefreshToken
}

func (s *scopedStore) load(ctx context.Context) Tokens {
	tokens, err := s.backend.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, model.ErrSessionNotFound) {
			slog.Warn("session lookup failed; treating as signed out", "session_id", shortID(s.id), "error", err)
		}
		return Tokens{}
	}

	return tokens
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
