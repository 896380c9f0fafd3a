package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const redisTokenKey = "portal:session:token"

// RedisTokenStore keeps the token slot in redis, for kiosk deployments where
// the portal process is replaceable but the login should survive it.
type RedisTokenStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisTokenStore creates a redis-backed token slot.
func NewRedisTokenStore(client *redis.Client, tracer trace.Tracer) *RedisTokenStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("portal.internal.session")
	}
	return &RedisTokenStore{redis: client, tracer: tracer}
}

func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "session.load_token")
	defer span.End()

	token, err := s.redis.Get(ctx, redisTokenKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		span.RecordError(err)
		return "", fmt.Errorf("load token from redis: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "session.save_token")
	defer span.End()

	// No TTL: the token lives until logout or the backend revokes it.
	if err := s.redis.Set(ctx, redisTokenKey, token, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist token to redis: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Delete(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "session.delete_token")
	defer span.End()

	if err := s.redis.Del(ctx, redisTokenKey).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete token from redis: %w", err)
	}
	return nil
}
