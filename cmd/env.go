package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sponsorlens/riskscan/internal/pipeline"
	"github.com/sponsorlens/riskscan/internal/store"
	anthropicpkg "github.com/sponsorlens/riskscan/pkg/anthropic"
	"github.com/sponsorlens/riskscan/pkg/websearch"
)

// scanEnv holds the initialized store and pipeline shared by the scan,
// outcome, and serve commands.
type scanEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *scanEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "riskscan.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, runs migrations, builds the API clients, and
// assembles the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context) (*scanEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var searchOpts []websearch.Option
	if cfg.Search.BaseURL != "" {
		searchOpts = append(searchOpts, websearch.WithBaseURL(cfg.Search.BaseURL))
	}
	searchClient := websearch.NewClient(cfg.Search.Key, cfg.Search.EngineID, searchOpts...)
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	// Optional vocabulary extension for disambiguation.
	if cfg.Scan.TermsPath != "" {
		terms, err := pipeline.LoadTermsConfig(cfg.Scan.TermsPath)
		if err != nil {
			zap.L().Warn("terms config not loaded, using built-in vocabulary", zap.Error(err))
		} else {
			pipeline.ExtendTerms(terms)
			zap.L().Info("disambiguation vocabulary extended",
				zap.Int("misleading", len(terms.Misleading)),
				zap.Int("context", len(terms.Context)),
			)
		}
	}

	return &scanEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, searchClient, anthropicClient),
	}, nil
}
