package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresStore is the durable tier of the session store. One row per
// composite session key, upserted last-writer-wins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		return nil
	}
	return &PostgresStore{db: db}
}

// Get loads the durable session record, returning nil when absent.
func (s *PostgresStore) Get(ctx context.Context, tenantID, address string) (*Session, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE session_key = $1`,
		Key(tenantID, address),
	).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: load durable session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(state, &sess); err != nil {
		return nil, fmt.Errorf("session: decode durable session: %w", err)
	}
	return &sess, nil
}

// Save upserts the full session record keyed by the composite session key.
func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	if s == nil || s.db == nil {
		return nil
	}
	if sess == nil {
		return errors.New("session: nil session")
	}

	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal session: %w", err)
	}

	var endedAt sql.NullTime
	if !sess.IsActive() {
		endedAt = sql.NullTime{Time: sess.LastActivityAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_key, tenant_id, address, stage, state, is_active, started_at, last_activity_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_key) DO UPDATE SET
			stage = EXCLUDED.stage,
			state = EXCLUDED.state,
			is_active = EXCLUDED.is_active,
			last_activity_at = EXCLUDED.last_activity_at,
			ended_at = EXCLUDED.ended_at
	`,
		sess.Key(),
		sess.TenantID,
		sess.Address,
		string(sess.Stage),
		state,
		sess.IsActive(),
		sess.CreatedAt,
		sess.LastActivityAt,
		endedAt,
	)
	if err != nil {
		return fmt.Errorf("session: save durable session: %w", err)
	}
	return nil
}

// Clear removes the durable record for a (tenant, address) pair.
func (s *PostgresStore) Clear(ctx context.Context, tenantID, address string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_key = $1`,
		Key(tenantID, address),
	)
	if err != nil {
		return fmt.Errorf("session: clear durable session: %w", err)
	}
	return nil
}

// ReapIdle deletes sessions with no activity since the cutoff and returns
// how many rows were removed.
func (s *PostgresStore) ReapIdle(ctx context.Context, idleWindow time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-idleWindow)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_activity_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("session: reap idle sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: reap rows affected: %w", err)
	}
	return n, nil
}
