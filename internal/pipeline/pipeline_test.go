package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponsorlens/riskscan/internal/config"
	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/pkg/anthropic"
	"github.com/sponsorlens/riskscan/pkg/websearch"
)

func testConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{
			Key:        "test-key",
			EngineID:   "test-cx",
			PageSize:   5,
			BatchSize:  3,
			MaxResults: 25,
			RatePerSec: 100,
		},
		Anthropic: config.AnthropicConfig{Key: "test-key", Model: "test-model"},
		Scan: config.ScanConfig{
			FreshnessDays:     30,
			ClassifyBatchSize: 3,
			RetryAttempts:     2,
			RetryBaseMs:       1,
		},
	}
}

func TestPipelineRun_EndToEnd(t *testing.T) {
	search := &fakeSearch{results: []websearch.Result{
		{Title: "Ali-A accused of sponsorship fraud", Snippet: "The YouTuber faces claims", Link: "https://example.com/a"},
		{Title: "Ali-A responds to fraud allegations", Snippet: "Statement from the creator", Link: "https://example.com/b"},
	}}
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`{"stance": "offender", "category": "fraud", "severity": 3, "sentiment": "negative", "mitigation": false, "summary": "Fraud allegations reported."}`), nil
	}}
	st := newMemStore()

	p := New(testConfig(), st, search, ai)
	creator := model.Creator{Name: "Ali-A", Handle: "OMGitsAliA"}

	outcome, err := p.Run(context.Background(), creator, RunOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, model.RiskLevelAmber, outcome.RiskLevel)
	require.NotNil(t, outcome.Score)
	assert.InDelta(t, 32.75, *outcome.Score, 0.001)
	assert.InDelta(t, 0.44, outcome.Confidence, 0.001)
	assert.Len(t, outcome.Evidence, 2)
	assert.Equal(t, 2, outcome.CategoryCounts[model.CategoryFraud])
	assert.NotEmpty(t, outcome.Summary)

	// Outcome was persisted under the creator key.
	persisted, err := st.GetOutcome(context.Background(), creator.Key())
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, outcome.RunID, persisted.RunID)
}

func TestPipelineRun_NoResultsYieldsUnknown(t *testing.T) {
	search := &fakeSearch{}
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse("{}"), nil
	}}
	st := newMemStore()

	p := New(testConfig(), st, search, ai)
	creator := model.Creator{Name: "Ali-A"}

	outcome, err := p.Run(context.Background(), creator, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.RiskLevelUnknown, outcome.RiskLevel)
	assert.Nil(t, outcome.Score)
	assert.Equal(t, 0.1, outcome.Confidence)
	assert.NotEmpty(t, outcome.Summary)

	persisted, err := st.GetOutcome(context.Background(), creator.Key())
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, model.RiskLevelUnknown, persisted.RiskLevel)
}

func TestPipelineRun_NothingAttributedYieldsUnknown(t *testing.T) {
	search := &fakeSearch{results: []websearch.Result{
		{Title: "Alias season 3 recap", Snippet: "the spy thriller returns", Link: "https://example.com/alias"},
	}}
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`{"match": false, "reason": "different subject"}`), nil
	}}
	st := newMemStore()

	p := New(testConfig(), st, search, ai)

	outcome, err := p.Run(context.Background(), model.Creator{Name: "Ali-A"}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.RiskLevelUnknown, outcome.RiskLevel)
	assert.Nil(t, outcome.Score)
}

func TestPipelineRun_FreshOutcomeServedFromCache(t *testing.T) {
	search := &fakeSearch{}
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse("{}"), nil
	}}
	st := newMemStore()
	creator := model.Creator{Name: "Ali-A"}

	cached := &model.RiskOutcome{
		RunID:     "cached-run",
		Creator:   creator,
		RiskLevel: model.RiskLevelGreen,
		ScannedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, st.PutOutcome(context.Background(), creator.Key(), cached))

	p := New(testConfig(), st, search, ai)

	outcome, err := p.Run(context.Background(), creator, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "cached-run", outcome.RunID)
	assert.Zero(t, search.calls, "fresh cached outcome must not trigger a new search")
}

func TestPipelineRun_ForceBypassesFreshness(t *testing.T) {
	search := &fakeSearch{}
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse("{}"), nil
	}}
	st := newMemStore()
	creator := model.Creator{Name: "Ali-A"}

	cached := &model.RiskOutcome{
		RunID:     "cached-run",
		Creator:   creator,
		RiskLevel: model.RiskLevelGreen,
		ScannedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, st.PutOutcome(context.Background(), creator.Key(), cached))

	p := New(testConfig(), st, search, ai)

	outcome, err := p.Run(context.Background(), creator, RunOptions{Force: true})
	require.NoError(t, err)

	assert.NotEqual(t, "cached-run", outcome.RunID)
	assert.Positive(t, search.calls)
}

func TestPipelineRun_MissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"search key", func(c *config.Config) { c.Search.Key = "" }},
		{"engine id", func(c *config.Config) { c.Search.EngineID = "" }},
		{"anthropic key", func(c *config.Config) { c.Anthropic.Key = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			search := &fakeSearch{}
			p := New(cfg, newMemStore(), search, &fakeAI{})

			_, err := p.Run(context.Background(), model.Creator{Name: "Ali-A"}, RunOptions{})

			require.Error(t, err)
			assert.Zero(t, search.calls, "credential errors must precede any network call")
		})
	}
}

func TestPipelineRun_EmptyName(t *testing.T) {
	p := New(testConfig(), newMemStore(), &fakeSearch{}, &fakeAI{})
	_, err := p.Run(context.Background(), model.Creator{}, RunOptions{})
	require.Error(t, err)
}
