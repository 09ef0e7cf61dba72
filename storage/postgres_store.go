package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"realestatesync/models"
)

// PostgresStore persists properties to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL, waits for it to come up, and runs the
// schema migration. The returned *sql.DB is shared with the settings store.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}
	return db, nil
}

// NewPostgresStore runs the properties migration and returns a ready store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id            VARCHAR(64)  PRIMARY KEY,
			title         TEXT         NOT NULL,
			description   TEXT         NOT NULL DEFAULT '',
			price         NUMERIC(12,2) NOT NULL DEFAULT 0,
			bedrooms      INT          NOT NULL DEFAULT 0,
			bathrooms     INT          NOT NULL DEFAULT 0,
			area          NUMERIC(10,2) NOT NULL DEFAULT 0,
			address       TEXT         NOT NULL DEFAULT '',
			city          TEXT         NOT NULL DEFAULT '',
			state         TEXT         NOT NULL DEFAULT '',
			zip           TEXT         NOT NULL DEFAULT '',
			property_type TEXT         NOT NULL DEFAULT '',
			features      TEXT[]       NOT NULL DEFAULT '{}',
			images        TEXT[]       NOT NULL DEFAULT '{}',
			contact_phone TEXT         NOT NULL DEFAULT '',
			contact_email TEXT         NOT NULL DEFAULT '',
			published     BOOLEAN      NOT NULL DEFAULT FALSE,
			distributions JSONB        NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_properties_city      ON properties(city);
		CREATE INDEX IF NOT EXISTS idx_properties_published ON properties(published);
	`)
	return err
}

const propertyColumns = `id, title, description, price, bedrooms, bathrooms, area,
	address, city, state, zip, property_type, features, images,
	contact_phone, contact_email, published, distributions, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Property) error {
	distributions, err := json.Marshal(p.Distributions)
	if err != nil {
		return fmt.Errorf("postgres: marshal distributions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO properties (id, title, description, price, bedrooms, bathrooms, area,
			address, city, state, zip, property_type, features, images,
			contact_phone, contact_email, published, distributions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, p.ID, p.Title, p.Description, p.Price, p.Bedrooms, p.Bathrooms, p.Area,
		p.Address, p.City, p.State, p.Zip, p.PropertyType,
		pq.Array(p.Features), pq.Array(p.Images),
		p.ContactPhone, p.ContactEmail, p.Published, distributions)
	if err != nil {
		return fmt.Errorf("postgres: insert property: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)

	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get property: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list properties: %w", err)
	}
	defer rows.Close()

	var out []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Property) error {
	distributions, err := json.Marshal(p.Distributions)
	if err != nil {
		return fmt.Errorf("postgres: marshal distributions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE properties SET
			title = $2, description = $3, price = $4, bedrooms = $5, bathrooms = $6,
			area = $7, address = $8, city = $9, state = $10, zip = $11,
			property_type = $12, features = $13, images = $14,
			contact_phone = $15, contact_email = $16, published = $17,
			distributions = $18, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Title, p.Description, p.Price, p.Bedrooms, p.Bathrooms, p.Area,
		p.Address, p.City, p.State, p.Zip, p.PropertyType,
		pq.Array(p.Features), pq.Array(p.Images),
		p.ContactPhone, p.ContactEmail, p.Published, distributions)
	if err != nil {
		return fmt.Errorf("postgres: update property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDistributions merges per-target results inside a transaction with a
// row lock, so concurrent publishes of the same property cannot lose writes.
func (s *PostgresStore) UpdateDistributions(ctx context.Context, id string, merge map[string]models.DistributionStatus, published bool) (*models.Property, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT distributions FROM properties WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: lock property row: %w", err)
	}

	current := make(map[string]models.DistributionStatus)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &current); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal distributions: %w", err)
		}
	}
	for target, status := range merge {
		current[target] = status
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal distributions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE properties SET
			distributions = $2,
			published = published OR $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, merged, published)
	if err != nil {
		return nil, fmt.Errorf("postgres: write distributions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: commit: %w", err)
	}
	return s.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	p := &models.Property{}
	var features, images pq.StringArray
	var distributions []byte

	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Bedrooms, &p.Bathrooms,
		&p.Area, &p.Address, &p.City, &p.State, &p.Zip, &p.PropertyType,
		&features, &images, &p.ContactPhone, &p.ContactEmail,
		&p.Published, &distributions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Features = features
	p.Images = images
	p.Distributions = make(map[string]models.DistributionStatus)
	if len(distributions) > 0 {
		if err := json.Unmarshal(distributions, &p.Distributions); err != nil {
			return nil, fmt.Errorf("unmarshal distributions: %w", err)
		}
	}
	return p, nil
}
