package store

import (
	"context"

	"github.com/sponsorlens/riskscan/internal/model"
)

// Store is the local persistence used by the scan pipeline: one risk outcome
// per creator (overwritten on rescan) and one classification per evidence
// URL. Both are plain key→value reads and writes with last-writer-wins
// semantics; freshness policy lives in the orchestrator, not here.
type Store interface {
	// Outcomes, keyed by creator identity.
	GetOutcome(ctx context.Context, creatorKey string) (*model.RiskOutcome, error)
	PutOutcome(ctx context.Context, creatorKey string, outcome *model.RiskOutcome) error

	// Classification cache, keyed by evidence URL.
	GetClassification(ctx context.Context, url string) (*model.Classification, error)
	PutClassification(ctx context.Context, url string, c *model.Classification) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
