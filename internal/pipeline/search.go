package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sponsorlens/riskscan/internal/config"
	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/pkg/websearch"
)

// SearchPhase retrieves candidate evidence for a profile. Queries run in
// small concurrent batches against a shared rate limiter; batches run
// sequentially. Partial batch failures degrade gracefully — an error is
// returned only when every query failed and nothing was retrieved.
func SearchPhase(ctx context.Context, profile model.EntityProfile, client websearch.Client, cfg config.SearchConfig) ([]model.EvidenceItem, error) {
	queries := BuildQueries(profile)
	if len(queries) == 0 {
		return nil, eris.New("search: profile has no identifiers")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 3
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	limiter := rate.NewLimiter(rate.Limit(perSec), batchSize)

	var mu sync.Mutex
	var raw []websearch.Result
	var errs []error

	for start := 0; start < len(queries); start += batchSize {
		end := min(start+batchSize, len(queries))

		g, gCtx := errgroup.WithContext(ctx)
		for _, query := range queries[start:end] {
			g.Go(func() error {
				if err := limiter.Wait(gCtx); err != nil {
					return nil //nolint:nilerr // context cancellation is surfaced by the caller
				}
				results, err := client.Search(gCtx, query, cfg.PageSize)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					zap.L().Warn("search: query failed",
						zap.String("query", query),
						zap.Error(err),
					)
					errs = append(errs, err)
					return nil
				}
				raw = append(raw, results...)
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			break
		}
	}

	items := dedupeResults(raw, cfg.MaxResults)

	if len(items) == 0 && len(errs) > 0 {
		return nil, searchFailure(errs)
	}

	zap.L().Info("search: evidence retrieved",
		zap.Int("queries", len(queries)),
		zap.Int("raw_results", len(raw)),
		zap.Int("unique_items", len(items)),
		zap.Int("failed_queries", len(errs)),
	)
	return items, nil
}

// dedupeResults drops unusable results, deduplicates by URL (first hit wins,
// preserving search rank), and caps the list at maxResults.
func dedupeResults(results []websearch.Result, maxResults int) []model.EvidenceItem {
	if maxResults <= 0 {
		maxResults = 25
	}

	seen := make(map[string]bool, len(results))
	items := make([]model.EvidenceItem, 0, len(results))
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Snippet) == "" && strings.TrimSpace(r.MetaDescription) == "" {
			continue
		}
		if seen[r.Link] {
			continue
		}
		seen[r.Link] = true

		items = append(items, model.EvidenceItem{
			Title:           r.Title,
			Snippet:         r.Snippet,
			URL:             r.Link,
			MetaDescription: r.MetaDescription,
			RichSnippet:     r.RichSnippet,
			SourceIndex:     len(items),
		})
		if len(items) >= maxResults {
			break
		}
	}
	return items
}

// searchFailure names the likely cause when every query failed: bad
// credentials are distinguished from quota exhaustion.
func searchFailure(errs []error) error {
	for _, err := range errs {
		if websearch.IsAuth(err) {
			return eris.Wrap(err, "search: all queries failed, credentials rejected")
		}
	}
	for _, err := range errs {
		if websearch.IsQuota(err) {
			return eris.Wrap(err, "search: all queries failed, provider quota exhausted")
		}
	}
	return eris.Wrapf(errs[0], "search: all %d queries failed", len(errs))
}
