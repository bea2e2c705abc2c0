package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

// Migrations are additive only; each entry runs once, tracked by the
// schema_version table.
func (s *Store) migrations() [][]string {
	pk := map[string]string{
		driverSQLite:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		driverMySQL:    "BIGINT PRIMARY KEY AUTO_INCREMENT",
		driverPostgres: "BIGSERIAL PRIMARY KEY",
	}[s.driver]

	return [][]string{
		{
			fmt.Sprintf(`CREATE TABLE person (
				id %s,
				name VARCHAR(255) NOT NULL,
				normalized_name VARCHAR(255) NOT NULL,
				chat_source VARCHAR(64) NOT NULL,
				chat_id VARCHAR(255) NOT NULL,
				email VARCHAR(255),
				force_email BOOLEAN NOT NULL DEFAULT FALSE,
				team_id VARCHAR(255)
			)`, pk),
			`CREATE UNIQUE INDEX idx_person_chat ON person (chat_source, chat_id)`,
			`CREATE INDEX idx_person_normalized_name ON person (normalized_name)`,
			fmt.Sprintf(`CREATE TABLE exchange (
				id %s,
				name VARCHAR(255) NOT NULL,
				seed BIGINT
			)`, pk),
			`CREATE TABLE participant (
				exchange_id BIGINT NOT NULL,
				person_id BIGINT NOT NULL,
				ordering INTEGER,
				seen BIGINT,
				PRIMARY KEY (exchange_id, person_id)
			)`,
			`CREATE TABLE admin (
				exchange_id BIGINT NOT NULL,
				person_id BIGINT NOT NULL,
				PRIMARY KEY (exchange_id, person_id)
			)`,
			`CREATE TABLE team (
				team_id VARCHAR(255) PRIMARY KEY,
				tenant VARCHAR(255) NOT NULL,
				service_url VARCHAR(1024) NOT NULL,
				channel VARCHAR(255),
				conversation_reference TEXT,
				creator_id BIGINT,
				exchange_id BIGINT
			)`,
			`CREATE UNIQUE INDEX idx_team_tenant ON team (tenant)`,
		},
	}
}

// Migrate brings the schema up to date. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return errors.WithMessage(err, "failed to create schema_version table")
	}

	var version int
	err = s.db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		version = 0
		_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO schema_version (version) VALUES (?)`), 0)
	}
	if err != nil {
		return errors.WithMessage(err, "failed to read schema version")
	}

	migrations := s.migrations()
	for v := version; v < len(migrations); v++ {
		for _, stmt := range migrations[v] {
			_, err = s.db.ExecContext(ctx, stmt)
			if err != nil {
				return errors.WithMessagef(err, "migration %d failed", v+1)
			}
		}

		_, err = s.db.ExecContext(ctx, s.q(`UPDATE schema_version SET version = ?`), v+1)
		if err != nil {
			return errors.WithMessagef(err, "failed to record schema version %d", v+1)
		}
	}

	return nil
}
