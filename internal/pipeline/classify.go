package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sponsorlens/riskscan/internal/config"
	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/internal/resilience"
	"github.com/sponsorlens/riskscan/internal/store"
	"github.com/sponsorlens/riskscan/pkg/anthropic"
)

const classifySystemPrompt = `You classify public web evidence about an online creator for reputational risk.
Categories: harm_to_minors, sexual_misconduct, violence, hate_speech, fraud, misinformation, guideline_violation, personal_drama. Use "insufficient_data" when the text supports no category.
Stance: "offender" if the creator is the accused or responsible party, "victim" if the creator is the target, "unrelated" otherwise.
Respond with a valid JSON object:
{"stance": "<offender|victim|unrelated>", "category": "<category>", "severity": <1-5>, "sentiment": "<negative|neutral|positive>", "mitigation": <true|false>, "summary": "<at most two factual sentences>"}
Set mitigation true only when the text itself describes mitigating circumstances (retraction, exoneration, apology accepted, context disproving intent).`

const classifyUserPrompt = `Creator: %s

Title: %s
URL: %s
Text:
%s`

// ClassifyPhase attaches a Classification to each evidence item, consulting
// the URL-keyed cache first. Cache misses are classified remotely in
// fixed-size batches: items within a batch run concurrently with independent
// failure handling, batches run sequentially. Items that exhaust retries are
// omitted from the returned slice.
func ClassifyPhase(ctx context.Context, creator model.Creator, items []model.EvidenceItem, ai anthropic.Client, st store.Store, cfg config.ScanConfig, modelID string) ([]model.EvidenceItem, anthropic.TokenUsage) {
	var totalUsage anthropic.TokenUsage

	enriched := make([]model.EvidenceItem, 0, len(items))
	var misses []model.EvidenceItem

	cacheHits := 0
	for _, item := range items {
		cached, err := st.GetClassification(ctx, item.URL)
		if err != nil {
			zap.L().Warn("classify: cache read failed", zap.String("url", item.URL), zap.Error(err))
		}
		if cached != nil {
			item.Classification = cached
			enriched = append(enriched, item)
			cacheHits++
			continue
		}
		misses = append(misses, item)
	}

	batchSize := cfg.ClassifyBatchSize
	if batchSize <= 0 {
		batchSize = 3
	}
	retryCfg := resilience.RetryConfig{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseMs) * time.Millisecond,
		OnRetry:     resilience.RetryLogger("anthropic", "classify"),
	}

	dropped := 0
	for start := 0; start < len(misses); start += batchSize {
		end := min(start+batchSize, len(misses))

		var mu sync.Mutex
		g, gCtx := errgroup.WithContext(ctx)
		for _, item := range misses[start:end] {
			g.Go(func() error {
				c, usage, err := classifyItem(gCtx, ai, modelID, creator, item, retryCfg)
				mu.Lock()
				defer mu.Unlock()
				totalUsage.Add(usage)
				if err != nil {
					dropped++
					zap.L().Warn("classify: item dropped after retries",
						zap.String("url", item.URL),
						zap.Error(err),
					)
					return nil
				}
				item.Classification = c
				enriched = append(enriched, item)
				if putErr := st.PutClassification(ctx, item.URL, c); putErr != nil {
					zap.L().Warn("classify: cache write failed", zap.String("url", item.URL), zap.Error(putErr))
				}
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			break
		}
	}

	// Cache hits land first and remote completions arrive in goroutine
	// order; restore search rank before handing the slice downstream.
	sort.Slice(enriched, func(i, j int) bool {
		return enriched[i].SourceIndex < enriched[j].SourceIndex
	})

	zap.L().Info("classify: evidence classified",
		zap.Int("input", len(items)),
		zap.Int("cache_hits", cacheHits),
		zap.Int("classified", len(enriched)-cacheHits),
		zap.Int("dropped", dropped),
	)
	totalUsage.LogUsage(modelID, "classify")
	return enriched, totalUsage
}

// classifyItem performs one remote classification with retry and backoff.
func classifyItem(ctx context.Context, ai anthropic.Client, modelID string, creator model.Creator, item model.EvidenceItem, retryCfg resilience.RetryConfig) (*model.Classification, anthropic.TokenUsage, error) {
	var usage anthropic.TokenUsage

	text := item.Snippet
	if item.MetaDescription != "" {
		text += "\n" + item.MetaDescription
	}
	prompt := fmt.Sprintf(classifyUserPrompt, creator.Name, item.Title, item.URL, text)

	c, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*model.Classification, error) {
		resp, err := ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     modelID,
			MaxTokens: 512,
			System:    classifySystemPrompt,
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
		if err != nil {
			return nil, err
		}
		usage.Add(resp.Usage)
		return parseEvidenceClassification(extractText(resp))
	})
	return c, usage, err
}

// parseEvidenceClassification validates the remote response at the parse
// boundary. A response that does not match the expected shape is an item
// failure, never propagated further into scoring.
func parseEvidenceClassification(text string) (*model.Classification, error) {
	var raw struct {
		Stance     string `json:"stance"`
		Category   string `json:"category"`
		Severity   int    `json:"severity"`
		Sentiment  string `json:"sentiment"`
		Mitigation bool   `json:"mitigation"`
		Summary    string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return nil, eris.Wrap(err, "classify: unmarshal response")
	}

	stance := model.Stance(strings.ToLower(raw.Stance))
	switch stance {
	case model.StanceOffender, model.StanceVictim, model.StanceUnrelated:
	default:
		return nil, eris.Errorf("classify: invalid stance %q", raw.Stance)
	}

	category := model.Category(strings.ToLower(raw.Category))
	if category == "insufficient_data" {
		category = model.CategoryInsufficientData
	}
	if category != model.CategoryInsufficientData {
		valid := false
		for _, c := range model.AllCategories() {
			if c == category {
				valid = true
				break
			}
		}
		if !valid {
			return nil, eris.Errorf("classify: invalid category %q", raw.Category)
		}
	}

	if raw.Severity < 1 || raw.Severity > 5 {
		return nil, eris.Errorf("classify: severity %d out of range", raw.Severity)
	}

	sentiment := model.Sentiment(strings.ToLower(raw.Sentiment))
	switch sentiment {
	case model.SentimentNegative, model.SentimentNeutral, model.SentimentPositive:
	default:
		return nil, eris.Errorf("classify: invalid sentiment %q", raw.Sentiment)
	}

	return &model.Classification{
		Stance:     stance,
		Category:   category,
		Severity:   raw.Severity,
		Sentiment:  sentiment,
		Mitigation: raw.Mitigation,
		Summary:    strings.TrimSpace(raw.Summary),
	}, nil
}
