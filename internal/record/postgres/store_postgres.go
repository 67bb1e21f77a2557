// Package postgres persists certificate records in PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"certpass/internal/record"
	"certpass/pkg/platform/sentinel"
)

// Schema is the DDL the store expects. Deployments apply it out of band;
// integration tests apply it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS certificate_records (
	fingerprint         TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	email               TEXT NOT NULL,
	registration_number TEXT NOT NULL DEFAULT '',
	team_id             TEXT NOT NULL DEFAULT '',
	event_name          TEXT NOT NULL DEFAULT '',
	issued_on           TEXT NOT NULL DEFAULT '',
	custom_fields       JSONB NOT NULL DEFAULT '{}'::jsonb,
	hash_config         JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store implements record.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool and verifies connectivity.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

func (s *Store) Save(ctx context.Context, rec record.Record) error {
	custom, err := json.Marshal(orEmpty(rec.CustomFields))
	if err != nil {
		return fmt.Errorf("marshal custom fields: %w", err)
	}
	hashCfg, err := json.Marshal(rec.HashConfig)
	if err != nil {
		return fmt.Errorf("marshal hash config: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const q = `
		INSERT INTO certificate_records
			(fingerprint, name, email, registration_number, team_id, event_name, issued_on, custom_fields, hash_config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (fingerprint) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			registration_number = EXCLUDED.registration_number,
			team_id = EXCLUDED.team_id,
			event_name = EXCLUDED.event_name,
			issued_on = EXCLUDED.issued_on,
			custom_fields = EXCLUDED.custom_fields,
			hash_config = EXCLUDED.hash_config
	`
	_, err = s.pool.Exec(ctx, q,
		rec.Fingerprint,
		rec.Name,
		rec.Email,
		rec.RegistrationNumber,
		rec.TeamID,
		rec.EventName,
		rec.IssuedOn,
		custom,
		hashCfg,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("upsert certificate record: %w", err)
	}
	return nil
}

func (s *Store) FindByFingerprint(ctx context.Context, fp string) (record.Record, error) {
	const q = `
		SELECT fingerprint, name, email, registration_number, team_id, event_name, issued_on, custom_fields, hash_config, created_at
		FROM certificate_records
		WHERE fingerprint = $1
	`
	var rec record.Record
	var custom, hashCfg []byte
	err := s.pool.QueryRow(ctx, q, fp).Scan(
		&rec.Fingerprint,
		&rec.Name,
		&rec.Email,
		&rec.RegistrationNumber,
		&rec.TeamID,
		&rec.EventName,
		&rec.IssuedOn,
		&custom,
		&hashCfg,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return record.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("select certificate record: %w", err)
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &rec.CustomFields); err != nil {
			return record.Record{}, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	if len(rec.CustomFields) == 0 {
		rec.CustomFields = nil
	}
	if len(hashCfg) > 0 {
		if err := json.Unmarshal(hashCfg, &rec.HashConfig); err != nil {
			return record.Record{}, fmt.Errorf("decode hash config: %w", err)
		}
	}
	return rec, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
