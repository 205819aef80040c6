package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"profile-portal/internal/model"
)

const redisKeyPrefix = "portal:session:"

// Redis relies on key expiry, so it needs no janitor.
type Redis struct {
	client *redis.Client
	sealer *Sealer
}

func NewRedis(client *redis.Client, sealer *Sealer) *Redis {
	return &Redis{client: client, sealer: sealer}
}

func (r *Redis) Load(ctx context.Context, id string) (Tokens, error) {
	sealed, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Tokens{}, model.ErrSessionNotFound
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("load session: %w", err)
	}

	return r.sealer.Open(id, sealed)
}

func (r *Redis) Store(ctx context.Context, id string, tokens Tokens, ttl time.Duration) error {
	sealed, err := r.sealer.Seal(id, tokens)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, redisKeyPrefix+id, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
