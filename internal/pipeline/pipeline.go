package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sponsorlens/riskscan/internal/config"
	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/internal/store"
	"github.com/sponsorlens/riskscan/pkg/anthropic"
	"github.com/sponsorlens/riskscan/pkg/websearch"
)

// Pipeline orchestrates a reputational-risk scan: search, dedup,
// disambiguation, classification, scoring, persistence. Data flows strictly
// left to right; no stage calls back upstream.
type Pipeline struct {
	cfg    *config.Config
	store  store.Store
	search websearch.Client
	ai     anthropic.Client
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, searchClient websearch.Client, aiClient anthropic.Client) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  st,
		search: searchClient,
		ai:     aiClient,
	}
}

// RunOptions adjusts a single scan.
type RunOptions struct {
	// Aliases extends the derived entity profile with caller-supplied names.
	Aliases []string
	// Force bypasses the run-level freshness window and rescans.
	Force bool
}

// Run executes a full scan for one creator and returns the persisted
// RiskOutcome. Insufficient data (no search results, nothing surviving
// disambiguation) yields a well-formed "unknown" outcome, never an error.
func (p *Pipeline) Run(ctx context.Context, creator model.Creator, opts RunOptions) (*model.RiskOutcome, error) {
	if creator.Name == "" {
		return nil, eris.New("pipeline: creator name is required")
	}
	if err := p.checkCredentials(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("creator", creator.Name))

	// Run-level freshness: a recent outcome is served without rescanning.
	if !opts.Force {
		cached, err := p.store.GetOutcome(ctx, creator.Key())
		if err != nil {
			log.Warn("pipeline: outcome cache read failed", zap.Error(err))
		}
		freshness := time.Duration(p.cfg.Scan.FreshnessDays) * 24 * time.Hour
		if cached.FreshWithin(freshness, time.Now()) {
			log.Info("pipeline: returning fresh cached outcome",
				zap.Time("scanned_at", cached.ScannedAt),
			)
			return cached, nil
		}
	}

	start := time.Now()
	log.Info("pipeline: starting scan")

	profile := model.BuildEntityProfile(creator, opts.Aliases)

	items, err := SearchPhase(ctx, profile, p.search, p.cfg.Search)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: search stage")
	}
	if len(items) == 0 {
		return p.finishUnknown(ctx, creator, profile,
			"No public evidence was retrieved for this creator.", log)
	}

	validated := DisambiguatePhase(ctx, items, profile, p.ai, p.cfg.Anthropic.Model)
	if len(validated) == 0 {
		return p.finishUnknown(ctx, creator, profile,
			"Retrieved evidence could not be attributed to this creator.", log)
	}

	enriched, _ := ClassifyPhase(ctx, creator, validated, p.ai, p.store, p.cfg.Scan, p.cfg.Anthropic.Model)
	if len(enriched) == 0 {
		return p.finishUnknown(ctx, creator, profile,
			"Evidence was found but could not be classified.", log)
	}

	scored := ScoreEvidence(enriched, time.Now())
	composite := compositeScore(scored)
	confidence := confidenceScore(scored)
	finalScore, level, finalConfidence := applyOverrides(composite, confidence, scored)

	counts := countCategories(scored)
	outcome := &model.RiskOutcome{
		RunID:          uuid.New().String(),
		Creator:        creator,
		Identifiers:    profile.Identifiers,
		RiskLevel:      level,
		Score:          &finalScore,
		Confidence:     finalConfidence,
		Summary:        buildSummary(level, finalScore, counts, len(scored)),
		CategoryCounts: counts,
		Evidence:       scored,
		ScannedAt:      time.Now().UTC(),
	}

	p.persist(ctx, creator, outcome, log)

	log.Info("pipeline: scan complete",
		zap.String("run_id", outcome.RunID),
		zap.String("risk_level", string(level)),
		zap.Float64("score", finalScore),
		zap.Float64("confidence", finalConfidence),
		zap.Int("evidence", len(scored)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return outcome, nil
}

// checkCredentials verifies every remote collaborator is configured before
// any network call is made.
func (p *Pipeline) checkCredentials() error {
	if p.cfg.Search.Key == "" {
		return eris.New("pipeline: search provider API key not configured")
	}
	if p.cfg.Search.EngineID == "" {
		return eris.New("pipeline: search engine ID not configured")
	}
	if p.cfg.Anthropic.Key == "" {
		return eris.New("pipeline: classification provider API key not configured")
	}
	return nil
}

// finishUnknown persists and returns the insufficient-data outcome: level
// unknown, nil score, confidence floor. "No signal" is a different claim
// than "confirmed safe".
func (p *Pipeline) finishUnknown(ctx context.Context, creator model.Creator, profile model.EntityProfile, reason string, log *zap.Logger) (*model.RiskOutcome, error) {
	outcome := &model.RiskOutcome{
		RunID:       uuid.New().String(),
		Creator:     creator,
		Identifiers: profile.Identifiers,
		RiskLevel:   model.RiskLevelUnknown,
		Score:       nil,
		Confidence:  0.1,
		Summary:     reason,
		ScannedAt:   time.Now().UTC(),
	}
	p.persist(ctx, creator, outcome, log)
	log.Info("pipeline: scan complete with insufficient data", zap.String("reason", reason))
	return outcome, nil
}

func (p *Pipeline) persist(ctx context.Context, creator model.Creator, outcome *model.RiskOutcome, log *zap.Logger) {
	if err := p.store.PutOutcome(ctx, creator.Key(), outcome); err != nil {
		log.Warn("pipeline: failed to persist outcome", zap.Error(err))
	}
}

func countCategories(items []model.EvidenceItem) map[model.Category]int {
	counts := make(map[model.Category]int)
	for _, item := range items {
		if item.Classification == nil || item.Classification.Category == model.CategoryInsufficientData {
			continue
		}
		counts[item.Classification.Category]++
	}
	return counts
}

// buildSummary renders a short human-readable rationale for the outcome.
func buildSummary(level model.RiskLevel, score float64, counts map[model.Category]int, evidenceCount int) string {
	if len(counts) == 0 {
		return fmt.Sprintf("%d evidence items reviewed; none carried a classifiable risk category. Risk level %s (score %.0f).",
			evidenceCount, level, score)
	}

	type categoryCount struct {
		category model.Category
		count    int
	}
	ranked := make([]categoryCount, 0, len(counts))
	for c, n := range counts {
		ranked = append(ranked, categoryCount{c, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].category < ranked[j].category
	})

	top := ranked[0]
	return fmt.Sprintf("%d evidence items reviewed across %d risk categories; most frequent: %s (%d items). Risk level %s (score %.0f).",
		evidenceCount, len(counts), top.category, top.count, level, score)
}
