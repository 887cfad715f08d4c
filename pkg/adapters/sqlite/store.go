// Package sqlite persists campaigns in a local SQLite database, for
// installations that want durable results without running extra
// infrastructure.
//
// Campaign metadata and run records live in the campaigns table; indicator
// accumulators live in the series table, one row per indicator. Opening a
// path migrates the schema in place.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/results"
)

const schema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id TEXT PRIMARY KEY,
	system TEXT NOT NULL,
	created_at TEXT NOT NULL,
	config TEXT NOT NULL,
	runs TEXT NOT NULL DEFAULT '[]',
	sealed BLOB NOT NULL DEFAULT X''
);

CREATE TABLE IF NOT EXISTS series (
	campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	stats TEXT NOT NULL,
	times TEXT NOT NULL,
	pairs TEXT NOT NULL,
	n INTEGER NOT NULL,
	PRIMARY KEY (campaign_id, name)
);

CREATE INDEX IF NOT EXISTS idx_series_campaign ON series(campaign_id);
`

// Store implements ports.ResultStore on a SQLite database file.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// ":memory:" keeps everything in process memory.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes
	// writers, which SQLite wants anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCampaign writes the campaign and its indicator series in one
// transaction, replacing any previous version.
func (s *Store) SaveCampaign(ctx context.Context, c *results.Campaign) error {
	config, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("encode campaign %s: %w", c.ID, err)
	}
	runs, err := json.Marshal(c.Runs)
	if err != nil {
		return fmt.Errorf("encode campaign %s: %w", c.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save campaign %s: %w", c.ID, err)
	}
	defer tx.Rollback()

	id := c.ID.String()
	sealed := c.Sealed
	if sealed == nil {
		sealed = []byte{}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaigns (id, system, created_at, config, runs, sealed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			system = excluded.system,
			created_at = excluded.created_at,
			config = excluded.config,
			runs = excluded.runs,
			sealed = excluded.sealed`,
		id, c.System, c.CreatedAt.UTC().Format(time.RFC3339Nano), string(config), string(runs), sealed)
	if err != nil {
		return fmt.Errorf("save campaign %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM series WHERE campaign_id = ?`, id); err != nil {
		return fmt.Errorf("save campaign %s: %w", id, err)
	}
	for _, name := range c.IndicatorNames() {
		ind := c.Indicators[name]
		stats, err := json.Marshal(ind.Stats)
		if err != nil {
			return fmt.Errorf("encode indicator %s: %w", name, err)
		}
		times, err := json.Marshal(ind.Times)
		if err != nil {
			return fmt.Errorf("encode indicator %s: %w", name, err)
		}
		pairs, err := json.Marshal(ind.Pairs)
		if err != nil {
			return fmt.Errorf("encode indicator %s: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO series (campaign_id, name, stats, times, pairs, n)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, name, string(stats), string(times), string(pairs), ind.N)
		if err != nil {
			return fmt.Errorf("save indicator %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save campaign %s: %w", id, err)
	}
	return nil
}

// LoadCampaign retrieves a campaign by ID.
func (s *Store) LoadCampaign(ctx context.Context, id string) (*results.Campaign, error) {
	var (
		system    string
		createdAt string
		config    string
		runs      string
		sealed    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT system, created_at, config, runs, sealed FROM campaigns WHERE id = ?`, id).
		Scan(&system, &createdAt, &config, &runs, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCampaignNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", id, err)
	}

	cid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse campaign id %s: %w", id, err)
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	c := &results.Campaign{
		ID:         cid,
		System:     system,
		CreatedAt:  created,
		Indicators: make(map[string]*results.IndicatorResult),
	}
	if len(sealed) > 0 {
		c.Sealed = sealed
	}
	if err := json.Unmarshal([]byte(config), &c.Config); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(runs), &c.Runs); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, stats, times, pairs, n FROM series WHERE campaign_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			stats string
			times string
			pairs string
			n     int
		)
		if err := rows.Scan(&name, &stats, &times, &pairs, &n); err != nil {
			return nil, fmt.Errorf("load campaign %s: %w", id, err)
		}
		ind := &results.IndicatorResult{Name: name, N: n}
		if err := json.Unmarshal([]byte(stats), &ind.Stats); err != nil {
			return nil, fmt.Errorf("decode indicator %s: %w", name, err)
		}
		if err := json.Unmarshal([]byte(times), &ind.Times); err != nil {
			return nil, fmt.Errorf("decode indicator %s: %w", name, err)
		}
		if err := json.Unmarshal([]byte(pairs), &ind.Pairs); err != nil {
			return nil, fmt.Errorf("decode indicator %s: %w", name, err)
		}
		c.Indicators[name] = ind
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", id, err)
	}
	return c, nil
}

// ListCampaigns returns the stored campaign IDs in sorted order.
func (s *Store) ListCampaigns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list campaigns: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return ids, nil
}

// DeleteCampaign removes a campaign and its series. Deleting a missing
// campaign is not an error.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM series WHERE campaign_id = ?`, id); err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	return nil
}
