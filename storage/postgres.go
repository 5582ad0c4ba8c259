package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"housing-navigator/models"
)

// PostgresStore persists listings to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
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

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE OR REPLACE FUNCTION keep_stored(stored TEXT, incoming TEXT) RETURNS BOOLEAN AS $fn$
			SELECT incoming = 'synthetic' AND stored <> 'synthetic'
		$fn$ LANGUAGE SQL IMMUTABLE;

		CREATE TABLE IF NOT EXISTS listings (
			identity_key   VARCHAR(32)  PRIMARY KEY,
			title          TEXT         NOT NULL,
			address        TEXT         NOT NULL,
			city           TEXT         NOT NULL DEFAULT '',
			state          TEXT         NOT NULL DEFAULT '',
			country        TEXT         NOT NULL DEFAULT '',
			price          BIGINT,
			bedroom_count  INT,
			bathroom_count NUMERIC(4,1),
			area           NUMERIC(8,2),
			programs       TEXT[]       NOT NULL DEFAULT '{}',
			amenities      TEXT[]       NOT NULL DEFAULT '{}',
			available_from DATE,
			description    TEXT         NOT NULL DEFAULT '',
			source_name    VARCHAR(50)  NOT NULL,
			source_url     TEXT         NOT NULL DEFAULT '',
			image_url      TEXT         NOT NULL DEFAULT '',
			confidence     VARCHAR(16)  NOT NULL,
			last_seen_at   TIMESTAMPTZ  NOT NULL,
			active         BOOLEAN      NOT NULL DEFAULT TRUE
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price     ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_city      ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_source    ON listings(source_name);
		CREATE INDEX IF NOT EXISTS idx_listings_last_seen ON listings(last_seen_at);
	`)
	return err
}

// Upsert inserts or updates the listing by identity key in a single
// statement, so concurrent writers of the same key serialize inside
// PostgreSQL. Incoming non-null fields win; a synthetic record never
// replaces a stored exact/heuristic one (only last_seen_at refreshes).
func (ps *PostgresStore) Upsert(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	row := ps.db.QueryRowContext(ctx, `
		INSERT INTO listings (
			identity_key, title, address, city, state, country,
			price, bedroom_count, bathroom_count, area,
			programs, amenities, available_from, description,
			source_name, source_url, image_url, confidence, last_seen_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (identity_key) DO UPDATE SET
			title          = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.title ELSE EXCLUDED.title END,
			address        = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.address ELSE EXCLUDED.address END,
			city           = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.city ELSE EXCLUDED.city END,
			state          = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.state ELSE EXCLUDED.state END,
			country        = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.country ELSE EXCLUDED.country END,
			price          = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.price ELSE COALESCE(EXCLUDED.price, listings.price) END,
			bedroom_count  = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.bedroom_count ELSE COALESCE(EXCLUDED.bedroom_count, listings.bedroom_count) END,
			bathroom_count = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.bathroom_count ELSE COALESCE(EXCLUDED.bathroom_count, listings.bathroom_count) END,
			area           = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.area ELSE COALESCE(EXCLUDED.area, listings.area) END,
			programs       = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.programs ELSE EXCLUDED.programs END,
			amenities      = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.amenities ELSE EXCLUDED.amenities END,
			available_from = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.available_from ELSE COALESCE(EXCLUDED.available_from, listings.available_from) END,
			description    = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.description ELSE EXCLUDED.description END,
			source_name    = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.source_name ELSE EXCLUDED.source_name END,
			source_url     = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.source_url ELSE EXCLUDED.source_url END,
			image_url      = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.image_url ELSE EXCLUDED.image_url END,
			confidence     = CASE WHEN keep_stored(listings.confidence, EXCLUDED.confidence) THEN listings.confidence ELSE EXCLUDED.confidence END,
			last_seen_at   = EXCLUDED.last_seen_at,
			active         = TRUE
		RETURNING identity_key, title, address, city, state, country,
			price, bedroom_count, bathroom_count, area,
			programs, amenities, available_from, description,
			source_name, source_url, image_url, confidence, last_seen_at
	`,
		l.IdentityKey, l.Title, l.Address, l.Region.City, l.Region.State, l.Region.Country,
		l.Price, l.BedroomCount, l.BathroomCount, l.Area,
		pq.Array(l.AcceptedPrograms), pq.Array(l.Amenities), l.AvailableFrom, l.Description,
		l.SourceName, l.SourceURL, l.ImageURL, string(l.Confidence), l.LastSeenAt,
	)

	stored, err := scanListing(row)
	if err != nil {
		return nil, fmt.Errorf("postgres: upsert %s: %w", l.IdentityKey, err)
	}
	return stored, nil
}

// FindByKey returns the stored listing or nil when absent.
func (ps *PostgresStore) FindByKey(ctx context.Context, key string) (*models.Listing, error) {
	row := ps.db.QueryRowContext(ctx, selectColumns+` FROM listings WHERE identity_key = $1`, key)

	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find %s: %w", key, err)
	}
	return l, nil
}

// FetchAll retrieves all active stored listings.
func (ps *PostgresStore) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, selectColumns+` FROM listings WHERE active ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// MarkStale deactivates listings last seen before olderThan.
func (ps *PostgresStore) MarkStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := ps.db.ExecContext(ctx,
		`UPDATE listings SET active = FALSE WHERE active AND last_seen_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("postgres: mark stale: %w", err)
	}
	return res.RowsAffected()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

const selectColumns = `SELECT identity_key, title, address, city, state, country,
	price, bedroom_count, bathroom_count, area,
	programs, amenities, available_from, description,
	source_name, source_url, image_url, confidence, last_seen_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(r rowScanner) (*models.Listing, error) {
	l := &models.Listing{}
	var confidence string
	if err := r.Scan(
		&l.IdentityKey, &l.Title, &l.Address, &l.Region.City, &l.Region.State, &l.Region.Country,
		&l.Price, &l.BedroomCount, &l.BathroomCount, &l.Area,
		pq.Array(&l.AcceptedPrograms), pq.Array(&l.Amenities), &l.AvailableFrom, &l.Description,
		&l.SourceName, &l.SourceURL, &l.ImageURL, &confidence, &l.LastSeenAt,
	); err != nil {
		return nil, err
	}
	l.Confidence = models.Confidence(confidence)
	return l, nil
}
