package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sponsorlens/riskscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS outcomes (
	creator_key TEXT PRIMARY KEY,
	outcome     TEXT NOT NULL,
	scanned_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS classifications (
	url            TEXT PRIMARY KEY,
	classification TEXT NOT NULL,
	cached_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_scanned_at ON outcomes(scanned_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetOutcome(ctx context.Context, creatorKey string) (*model.RiskOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT outcome FROM outcomes WHERE creator_key = ?`, creatorKey,
	)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get outcome")
	}

	var outcome model.RiskOutcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
	}
	return &outcome, nil
}

func (s *SQLiteStore) PutOutcome(ctx context.Context, creatorKey string, outcome *model.RiskOutcome) error {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcomes (creator_key, outcome, scanned_at) VALUES (?, ?, ?)
		 ON CONFLICT(creator_key) DO UPDATE SET outcome = excluded.outcome, scanned_at = excluded.scanned_at`,
		creatorKey, string(raw), outcome.ScannedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: put outcome %s", creatorKey)
}

func (s *SQLiteStore) GetClassification(ctx context.Context, url string) (*model.Classification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT classification FROM classifications WHERE url = ?`, url,
	)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get classification")
	}

	var c model.Classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal classification")
	}
	return &c, nil
}

func (s *SQLiteStore) PutClassification(ctx context.Context, url string, c *model.Classification) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal classification")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO classifications (url, classification, cached_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET classification = excluded.classification, cached_at = excluded.cached_at`,
		url, string(raw), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put classification %s", url)
}
