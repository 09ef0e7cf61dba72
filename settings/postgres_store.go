package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore persists per-target settings in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore runs the schema migration on the given database handle
// and returns a ready-to-use PostgresStore. The handle is shared with the
// property store and owned by the caller.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("settings: migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS target_settings (
			target            VARCHAR(100) PRIMARY KEY,
			enabled           BOOLEAN      NOT NULL DEFAULT FALSE,
			api_key           TEXT         NOT NULL DEFAULT '',
			api_secret        TEXT         NOT NULL DEFAULT '',
			username          TEXT         NOT NULL DEFAULT '',
			password          TEXT         NOT NULL DEFAULT '',
			api_url           TEXT         NOT NULL DEFAULT '',
			pages             JSONB        NOT NULL DEFAULT '[]',
			additional_config JSONB        NOT NULL DEFAULT '{}',
			updated_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, target string) (Config, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT target, enabled, api_key, api_secret, username, password, api_url, pages, additional_config
		FROM target_settings
		WHERE target = $1
	`, target)

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("settings: get %s: %w", target, err)
	}
	return cfg, true, nil
}

func (s *PostgresStore) GetAll(ctx context.Context) (map[string]Config, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target, enabled, api_key, api_secret, username, password, api_url, pages, additional_config
		FROM target_settings
		ORDER BY target
	`)
	if err != nil {
		return nil, fmt.Errorf("settings: get all: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Config)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("settings: scan row: %w", err)
		}
		out[cfg.Target] = cfg
	}
	return out, rows.Err()
}

func (s *PostgresStore) Upsert(ctx context.Context, cfg Config) error {
	pages, err := json.Marshal(cfg.Pages)
	if err != nil {
		return fmt.Errorf("settings: marshal pages: %w", err)
	}
	additional, err := json.Marshal(cfg.AdditionalConfig)
	if err != nil {
		return fmt.Errorf("settings: marshal additional config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO target_settings (target, enabled, api_key, api_secret, username, password, api_url, pages, additional_config, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (target) DO UPDATE SET
			enabled           = EXCLUDED.enabled,
			api_key           = EXCLUDED.api_key,
			api_secret        = EXCLUDED.api_secret,
			username          = EXCLUDED.username,
			password          = EXCLUDED.password,
			api_url           = EXCLUDED.api_url,
			pages             = EXCLUDED.pages,
			additional_config = EXCLUDED.additional_config,
			updated_at        = NOW()
	`, cfg.Target, cfg.Enabled, cfg.APIKey, cfg.APISecret, cfg.Username, cfg.Password, cfg.APIURL, pages, additional)
	if err != nil {
		return fmt.Errorf("settings: upsert %s: %w", cfg.Target, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (Config, error) {
	var cfg Config
	var pages, additional []byte

	err := row.Scan(&cfg.Target, &cfg.Enabled, &cfg.APIKey, &cfg.APISecret,
		&cfg.Username, &cfg.Password, &cfg.APIURL, &pages, &additional)
	if err != nil {
		return Config{}, err
	}

	if len(pages) > 0 {
		if err := json.Unmarshal(pages, &cfg.Pages); err != nil {
			return Config{}, fmt.Errorf("unmarshal pages: %w", err)
		}
	}
	if len(additional) > 0 {
		if err := json.Unmarshal(additional, &cfg.AdditionalConfig); err != nil {
			return Config{}, fmt.Errorf("unmarshal additional config: %w", err)
		}
	}
	return cfg, nil
}
