package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open dials Postgres with the pool settings the API runs with.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// PostgresSnapshots stores one row per snapshot kind. The payload is the
// same wholesale JSON array the file port writes; the table exists so a
// shared database can back the store without changing its semantics.
type PostgresSnapshots struct {
	db *sql.DB
}

func NewPostgresSnapshots(ctx context.Context, db *sql.DB) (*PostgresSnapshots, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			kind TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("ensure snapshots table: %w", err)
	}
	return &PostgresSnapshots{db: db}, nil
}

func (s *PostgresSnapshots) DB() *sql.DB { return s.db }

func (s *PostgresSnapshots) Load(ctx context.Context, kind Kind) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE kind=$1`, string(kind)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", kind, err)
	}
	return payload, nil
}

func (s *PostgresSnapshots) Save(ctx context.Context, kind Kind, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (kind, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (kind) DO UPDATE SET payload=EXCLUDED.payload, updated_at=NOW()
	`, string(kind), payload)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", kind, err)
	}
	return nil
}
