package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sponsorlens/riskscan/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller retains ownership
// of the pool's lifecycle.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS outcomes (
	creator_key TEXT PRIMARY KEY,
	outcome     JSONB NOT NULL,
	scanned_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS classifications (
	url            TEXT PRIMARY KEY,
	classification JSONB NOT NULL,
	cached_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_scanned_at ON outcomes(scanned_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetOutcome(ctx context.Context, creatorKey string) (*model.RiskOutcome, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT outcome FROM outcomes WHERE creator_key = $1`, creatorKey,
	)

	var raw []byte
	err := row.Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get outcome")
	}

	var outcome model.RiskOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal outcome")
	}
	return &outcome, nil
}

func (s *PostgresStore) PutOutcome(ctx context.Context, creatorKey string, outcome *model.RiskOutcome) error {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO outcomes (creator_key, outcome, scanned_at) VALUES ($1, $2, $3)
		 ON CONFLICT (creator_key) DO UPDATE SET outcome = EXCLUDED.outcome, scanned_at = EXCLUDED.scanned_at`,
		creatorKey, raw, outcome.ScannedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: put outcome %s", creatorKey)
}

func (s *PostgresStore) GetClassification(ctx context.Context, url string) (*model.Classification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT classification FROM classifications WHERE url = $1`, url,
	)

	var raw []byte
	err := row.Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get classification")
	}

	var c model.Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal classification")
	}
	return &c, nil
}

func (s *PostgresStore) PutClassification(ctx context.Context, url string, c *model.Classification) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal classification")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO classifications (url, classification, cached_at) VALUES ($1, $2, $3)
		 ON CONFLICT (url) DO UPDATE SET classification = EXCLUDED.classification, cached_at = EXCLUDED.cached_at`,
		url, raw, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put classification %s", url)
}
