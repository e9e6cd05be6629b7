package model

import "time"

// RiskLevel is the discrete risk band.
type RiskLevel string

const (
	RiskLevelGreen   RiskLevel = "green"
	RiskLevelAmber   RiskLevel = "amber"
	RiskLevelRed     RiskLevel = "red"
	RiskLevelUnknown RiskLevel = "unknown"
)

// BandScore maps a 0-100 composite score onto a risk band.
// green [0,25], amber (25,60], red (60,100].
func BandScore(score float64) RiskLevel {
	switch {
	case score <= 25:
		return RiskLevelGreen
	case score <= 60:
		return RiskLevelAmber
	default:
		return RiskLevelRed
	}
}

// RiskOutcome is the per-run result. Persisted keyed by creator identity;
// a later run for the same creator replaces it. Score is nil when there was
// no validated evidence at all — "no signal" is a different claim than a
// score of 0.
type RiskOutcome struct {
	RunID          string           `json:"run_id"`
	Creator        Creator          `json:"creator"`
	Identifiers    []string         `json:"identifiers"`
	RiskLevel      RiskLevel        `json:"risk_level"`
	Score          *float64         `json:"score"`
	Confidence     float64          `json:"confidence"`
	Summary        string           `json:"summary"`
	CategoryCounts map[Category]int `json:"category_counts,omitempty"`
	Evidence       []EvidenceItem   `json:"evidence,omitempty"`
	ScannedAt      time.Time        `json:"scanned_at"`
}

// FreshWithin reports whether the outcome was produced recently enough to
// be served without a rescan.
func (o *RiskOutcome) FreshWithin(d time.Duration, now time.Time) bool {
	if o == nil {
		return false
	}
	return now.Sub(o.ScannedAt) <= d
}
