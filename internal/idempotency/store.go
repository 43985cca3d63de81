package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const deliveryKeyPrefix = "delivery:"

// Status describes what we know about a webhook delivery ID.
type Status string

const (
	// StatusNew means this call claimed the delivery and the caller must process it.
	StatusNew Status = "new"
	// StatusProcessing means another worker holds an unexpired claim.
	StatusProcessing Status = "processing"
	// StatusProcessed means the delivery already completed end to end.
	StatusProcessed Status = "processed"
)

const (
	processingValue = "processing"
	processedValue  = "processed"
)

// Store tracks webhook delivery IDs so redelivered events are not reprocessed.
type Store struct {
	redis        *redis.Client
	tracer       trace.Tracer
	claimTTL     time.Duration
	retentionTTL time.Duration
}

func NewStore(redisClient *redis.Client, claimTTL, retentionTTL time.Duration) *Store {
	if redisClient == nil {
		panic("idempotency: redis client required")
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if retentionTTL <= 0 {
		retentionTTL = 24 * time.Hour
	}
	return &Store{
		redis:        redisClient,
		tracer:       otel.Tracer("patientflow.internal.idempotency"),
		claimTTL:     claimTTL,
		retentionTTL: retentionTTL,
	}
}

// Claim atomically marks the delivery as processing. StatusNew means the
// caller won the claim; any other status means skip.
func (s *Store) Claim(ctx context.Context, deliveryID string) (Status, error) {
	if deliveryID == "" {
		return "", errors.New("idempotency: delivery id required")
	}

	ctx, span := s.tracer.Start(ctx, "idempotency.claim")
	defer span.End()

	key := deliveryKey(deliveryID)
	ok, err := s.redis.SetNX(ctx, key, processingValue, s.claimTTL).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("idempotency: claim delivery: %w", err)
	}
	if ok {
		return StatusNew, nil
	}

	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Claim expired between SETNX and GET. Treat as in flight and
			// let the provider redeliver.
			return StatusProcessing, nil
		}
		span.RecordError(err)
		return "", fmt.Errorf("idempotency: read delivery status: %w", err)
	}
	if val == processedValue {
		return StatusProcessed, nil
	}
	return StatusProcessing, nil
}

// MarkProcessed overwrites the claim once all side effects succeeded.
func (s *Store) MarkProcessed(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return errors.New("idempotency: delivery id required")
	}

	ctx, span := s.tracer.Start(ctx, "idempotency.mark_processed")
	defer span.End()

	if err := s.redis.Set(ctx, deliveryKey(deliveryID), processedValue, s.retentionTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("idempotency: mark processed: %w", err)
	}
	return nil
}

var releaseScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// Release drops an unfinished claim so a provider-initiated retry can
// reprocess the event. A record already marked processed is left alone.
func (s *Store) Release(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return errors.New("idempotency: delivery id required")
	}

	ctx, span := s.tracer.Start(ctx, "idempotency.release")
	defer span.End()

	_, err := releaseScript.Run(ctx, s.redis, []string{deliveryKey(deliveryID)}, processingValue).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return fmt.Errorf("idempotency: release claim: %w", err)
	}
	return nil
}

func deliveryKey(deliveryID string) string {
	return deliveryKeyPrefix + deliveryID
}
