package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate runs database migrations
// SchemaVersion is the newest catalog migration
const SchemaVersion = 3

func (s *SQLiteDB) migrate() error {
	ctx := context.Background()

	if err := s.createMigrationsTable(ctx); err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "reference_catalog", up: migrateV1},
		{version: 2, name: "key_value_store", up: migrateV2},
		{version: 3, name: "cost_summary_view", up: migrateV3},
	}

	for _, m := range migrations {
		if err := s.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}

type migration struct {
	version int
	name    string
	up      func(context.Context, *sql.Tx) error
}

func (s *SQLiteDB) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteDB) runMigration(ctx context.Context, m migration) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.up(ctx, tx); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%s', 'now'))",
		m.version, m.name)
	if err != nil {
		return err
	}

	s.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("Migration applied")
	return tx.Commit()
}

func execAll(ctx context.Context, tx *sql.Tx, queries []string) error {
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// migrateV1 creates sources, reports and chunks
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			base_url TEXT NOT NULL,
			last_scraped_at INTEGER,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL REFERENCES sources(id),
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			published_date TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			file_size_bytes INTEGER NOT NULL DEFAULT 0,
			file_hash TEXT NOT NULL DEFAULT '',
			download_status TEXT NOT NULL DEFAULT 'pending',
			download_error TEXT NOT NULL DEFAULT '',
			processing_status TEXT NOT NULL DEFAULT 'unprocessed',
			page_count INTEGER NOT NULL DEFAULT 0,
			extraction_method TEXT NOT NULL DEFAULT '',
			extraction_cost_usd REAL NOT NULL DEFAULT 0,
			embedding_cost_usd REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			UNIQUE(source_id, external_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_download ON reports(download_status)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_processing ON reports(processing_status)`,

		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			page_start INTEGER,
			page_end INTEGER,
			token_count INTEGER NOT NULL DEFAULT 0,
			is_table INTEGER NOT NULL DEFAULT 0,
			embedding BLOB,
			embedding_model TEXT NOT NULL DEFAULT '',
			UNIQUE(report_id, chunk_index)
		)`,
	})
}

// migrateV2 creates the key/value table for API keys and settings
func migrateV2(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, []string{
		`CREATE TABLE IF NOT EXISTS key_value_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	})
}

// migrateV3 adds the per-source progress and spend view
func migrateV3(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, []string{
		`CREATE VIEW IF NOT EXISTS cost_summary AS
		SELECT s.name AS name,
			COUNT(r.id) AS total,
			SUM(CASE WHEN r.download_status = 'downloaded' THEN 1 ELSE 0 END) AS downloaded,
			SUM(CASE WHEN r.processing_status = 'embedded' THEN 1 ELSE 0 END) AS embedded,
			ROUND(SUM(r.extraction_cost_usd + r.embedding_cost_usd), 4) AS total_cost
		FROM reports r JOIN sources s ON r.source_id = s.id
		GROUP BY s.name`,
	})
}
