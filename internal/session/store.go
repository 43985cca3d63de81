package session

import (
	"context"
	"log/slog"
)

// Store is the two-tier session store: a Redis cache in front of the durable
// Postgres record. Reads prefer the cache; writes land durably first, then
// refresh the cache best-effort.
type Store struct {
	cache   *Cache
	durable *PostgresStore
	logger  *slog.Logger
}

func NewStore(cache *Cache, durable *PostgresStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cache: cache, durable: durable, logger: logger}
}

// Get returns the session for a (tenant, address) pair, or nil when none
// exists. Cache errors degrade to a durable read.
func (s *Store) Get(ctx context.Context, tenantID, address string) (*Session, error) {
	key := Key(tenantID, address)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("session cache read failed, falling back to durable store",
			"session_key", key, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	sess, err := s.durable.Get(ctx, tenantID, address)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, sess); err != nil {
		s.logger.Warn("session cache repopulate failed", "session_key", key, "error", err)
	}
	return sess, nil
}

// Save persists the session durably, then refreshes the cache. A cache write
// failure is logged and swallowed.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if err := s.durable.Save(ctx, sess); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, sess); err != nil {
		s.logger.Warn("session cache write failed", "session_key", sess.Key(), "error", err)
	}
	return nil
}

// Clear removes the session from both tiers.
func (s *Store) Clear(ctx context.Context, tenantID, address string) error {
	if err := s.durable.Clear(ctx, tenantID, address); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, Key(tenantID, address)); err != nil {
		s.logger.Warn("session cache delete failed",
			"session_key", Key(tenantID, address), "error", err)
	}
	return nil
}
