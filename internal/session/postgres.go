package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"profile-portal/internal/model"
)

type Postgres struct {
	pool   *pgxpool.Pool
	sealer *Sealer
}

func NewPostgres(pool *pgxpool.Pool, sealer *Sealer) *Postgres {
	return &Postgres{pool: pool, sealer: sealer}
}

func (p *Postgres) Load(ctx context.Context, id string) (Tokens, error) {
	var sealed []byte
	err := p.pool.QueryRow(ctx,
		`SELECT tokens FROM portal_sessions
		 WHERE id = $1 AND expires_at > now()`, id).Scan(&sealed)

	if errors.Is(err, pgx.ErrNoRows) {
		return Tokens{}, model.ErrSessionNotFound
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("load session: %w", err)
	}

	return p.sealer.Open(id, sealed)
}

func (p *Postgres) Store(ctx context.Context, id string, tokens Tokens, ttl time.Duration) error {
	sealed, err := p.sealer.Seal(id, tokens)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = p.pool.Exec(ctx,
		`INSERT INTO portal_sessions (id, tokens, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET tokens = EXCLUDED.tokens, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
		id, sealed, now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (p *Postgres) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
