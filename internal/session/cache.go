package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/orchestrall/patientflow/internal/tenancy"
)

const sessionKeyPrefix = "session:"

// Cache is the fast tier of the session store. It is an optimization only;
// the durable store remains the source of truth.
type Cache struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewCache(redisClient *redis.Client, ttl time.Duration) *Cache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{
		redis:  redisClient,
		tracer: otel.Tracer("patientflow.internal.session.cache"),
		ttl:    ttl,
	}
}

// Get returns the cached session or nil on a miss.
func (c *Cache) Get(ctx context.Context, key string) (*Session, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}

	ctx, span := c.tracer.Start(ctx, "session.cache.get")
	defer span.End()
	tagTenant(ctx, span)

	raw, err := c.redis.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: cache get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: decode cached session: %w", err)
	}
	return &sess, nil
}

// Set writes the session with a refreshed TTL.
func (c *Cache) Set(ctx context.Context, sess *Session) error {
	if c == nil || c.redis == nil || sess == nil {
		return nil
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal session: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "session.cache.set")
	defer span.End()
	tagTenant(ctx, span)

	if err := c.redis.Set(ctx, cacheKey(sess.Key()), data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: cache set: %w", err)
	}
	return nil
}

// Delete drops the cached entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.redis == nil {
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "session.cache.delete")
	defer span.End()

	if err := c.redis.Del(ctx, cacheKey(key)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: cache delete: %w", err)
	}
	return nil
}

func cacheKey(key string) string {
	return sessionKeyPrefix + key
}

func tagTenant(ctx context.Context, span trace.Span) {
	if tenantID, ok := tenancy.TenantIDFromContext(ctx); ok {
		span.SetAttributes(attribute.String("tenant.id", tenantID))
	}
}
