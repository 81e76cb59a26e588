package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restrpc/gateway/pkg/dispatch"
)

const postgresLogPrefix = "store:postgres"

// NewPool creates a new PostgreSQL connection pool and verifies
// connectivity with a ping.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database url: %w", postgresLogPrefix, err)
	}

	config.MaxConns = 20
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", postgresLogPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", postgresLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to PostgreSQL", postgresLogPrefix))
	return pool, nil
}

// PostgresStore persists dispatch records in PostgreSQL so replays
// survive restarts and work across gateway instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ensure creates the dispatch record table if it does not exist.
func (s *PostgresStore) Ensure(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gateway_dispatches (
			api_version TEXT NOT NULL,
			service     TEXT NOT NULL,
			action      TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			request_id  TEXT NOT NULL,
			status      BOOLEAN NOT NULL,
			message     TEXT NOT NULL,
			data        JSONB,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (api_version, service, action, resource_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("%s - failed to ensure schema: %w", postgresLogPrefix, err)
	}
	return nil
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, key Key) (*Record, bool, error) {
	var (
		requestID string
		status    bool
		message   string
		data      []byte
		createdAt time.Time
	)

	err := s.pool.QueryRow(ctx, `
		SELECT request_id, status, message, data, created_at
		FROM gateway_dispatches
		WHERE api_version = $1 AND service = $2 AND action = $3 AND resource_id = $4
	`, key.APIVersion, key.Service, key.Action, key.ResourceID).
		Scan(&requestID, &status, &message, &data, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s - failed to look up record: %w", postgresLogPrefix, err)
	}

	env := &dispatch.Envelope{Status: status, Message: message}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env.Data); err != nil {
			return nil, false, fmt.Errorf("%s - failed to decode envelope data: %w", postgresLogPrefix, err)
		}
	}

	return &Record{RequestID: requestID, Envelope: env, CreatedAt: createdAt}, true, nil
}

// Save implements Store. The first record saved under a key wins;
// conflicting saves are silently dropped.
func (s *PostgresStore) Save(ctx context.Context, key Key, rec *Record) error {
	var data []byte
	if rec.Envelope.Data != nil {
		var err error
		data, err = json.Marshal(rec.Envelope.Data)
		if err != nil {
			return fmt.Errorf("%s - failed to encode envelope data: %w", postgresLogPrefix, err)
		}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO gateway_dispatches
			(api_version, service, action, resource_id, request_id, status, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (api_version, service, action, resource_id) DO NOTHING
	`, key.APIVersion, key.Service, key.Action, key.ResourceID,
		rec.RequestID, rec.Envelope.Status, rec.Envelope.Message, data, createdAt)
	if err != nil {
		return fmt.Errorf("%s - failed to save record: %w", postgresLogPrefix, err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
