package pipeline

import (
	"context"
	"sync"

	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/pkg/anthropic"
	"github.com/sponsorlens/riskscan/pkg/websearch"
)

// fakeAI routes CreateMessage calls through a configurable handler and counts
// invocations.
type fakeAI struct {
	mu      sync.Mutex
	calls   int
	handler func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (f *fakeAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.handler(req)
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// textResponse wraps a reply string in a single-block message response.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
}

// fakeSearch returns canned results per query, or a fixed error.
type fakeSearch struct {
	mu      sync.Mutex
	calls   int
	results []websearch.Result
	err     error
}

func (f *fakeSearch) Search(_ context.Context, _ string, _ int) ([]websearch.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	mu              sync.Mutex
	outcomes        map[string]*model.RiskOutcome
	classifications map[string]*model.Classification
}

func newMemStore() *memStore {
	return &memStore{
		outcomes:        make(map[string]*model.RiskOutcome),
		classifications: make(map[string]*model.Classification),
	}
}

func (m *memStore) GetOutcome(_ context.Context, creatorKey string) (*model.RiskOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[creatorKey], nil
}

func (m *memStore) PutOutcome(_ context.Context, creatorKey string, outcome *model.RiskOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[creatorKey] = outcome
	return nil
}

func (m *memStore) GetClassification(_ context.Context, url string) (*model.Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifications[url], nil
}

func (m *memStore) PutClassification(_ context.Context, url string, c *model.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifications[url] = c
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }
