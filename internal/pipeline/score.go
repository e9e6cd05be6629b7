package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/sponsorlens/riskscan/internal/model"
)

// categoryWeights is the fixed per-category severity multiplier.
var categoryWeights = map[model.Category]float64{
	model.CategoryHarmToMinors:       5,
	model.CategorySexualMisconduct:   5,
	model.CategoryViolence:           4,
	model.CategoryHateSpeech:         4,
	model.CategoryFraud:              3,
	model.CategoryMisinformation:     3,
	model.CategoryGuidelineViolation: 2,
	model.CategoryPersonalDrama:      1,
	model.CategoryInsufficientData:   1,
}

const (
	mitigationPenalty = 15.0
	sourceIndexWeight = 0.5
	topContributions  = 5
	volumeBonusPer    = 2.0
	volumeBonusCap    = 20.0
	recentMonthsMax   = 24
)

func sentimentAdjustment(s model.Sentiment) float64 {
	switch s {
	case model.SentimentNegative:
		return 10
	case model.SentimentPositive:
		return -10
	default:
		return 0
	}
}

// itemContribution computes one item's risk contribution, clamped to
// [0,100]. The mitigation discount never applies to mandatory-red
// categories.
func itemContribution(item model.EvidenceItem) float64 {
	c := item.Classification
	if c == nil {
		return 0
	}

	weight := categoryWeights[c.Category]
	contribution := float64(c.Severity)*weight +
		item.RecencyWeight*10 +
		sentimentAdjustment(c.Sentiment)

	if c.Mitigation && !c.Category.MandatoryRed() {
		contribution -= mitigationPenalty
	}

	contribution += sourceIndexWeight * math.Max(1, float64(10-item.SourceIndex))

	return clamp(contribution, 0, 100)
}

// ScoreEvidence enriches classified items in place with recency weight,
// detected age, and risk contribution.
func ScoreEvidence(items []model.EvidenceItem, now time.Time) []model.EvidenceItem {
	scored := make([]model.EvidenceItem, len(items))
	for i, item := range items {
		item.AgeMonths = detectAgeMonths(item.AggregatedText(), now)
		item.RecencyWeight = recencyWeightFor(item.AgeMonths)
		item.Contribution = itemContribution(item)
		scored[i] = item
	}
	return scored
}

// compositeScore averages the top contributions and adds an evidence-volume
// bonus: 2 points per item, capped at 20.
func compositeScore(items []model.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0
	}

	contributions := make([]float64, len(items))
	for i, item := range items {
		contributions[i] = item.Contribution
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(contributions)))

	n := min(topContributions, len(contributions))
	sum := 0.0
	for _, c := range contributions[:n] {
		sum += c
	}
	avg := sum / float64(n)

	bonus := math.Min(volumeBonusCap, volumeBonusPer*float64(len(items)))
	return clamp(avg+bonus, 0, 100)
}

// confidenceScore blends evidence volume with mean offender severity.
// Confidence and score are independent axes: no evidence at all yields the
// floor 0.1, regardless of the (nil) score.
func confidenceScore(items []model.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0.1
	}

	volume := math.Min(1, float64(len(items))/10)

	var sevSum, offenders float64
	for _, item := range items {
		if item.Classification != nil && item.Classification.Stance == model.StanceOffender {
			sevSum += float64(item.Classification.Severity)
			offenders++
		}
	}
	meanSeverity := 0.0
	if offenders > 0 {
		meanSeverity = sevSum / offenders
	}

	conf := 0.4*volume + 0.6*(meanSeverity/5)
	return math.Round(conf*100) / 100
}

// applyOverrides evaluates the mandatory-override policy after the composite
// score. Returns the final score, level, and confidence.
func applyOverrides(composite, confidence float64, items []model.EvidenceItem) (float64, model.RiskLevel, float64) {
	highSeverityOffenders := 0
	var mandatoryRedSeverity int
	recentHighSeverity := false

	for _, item := range items {
		c := item.Classification
		if c == nil || c.Stance != model.StanceOffender || c.Severity < 4 {
			continue
		}
		highSeverityOffenders++
		if c.Category.MandatoryRed() && c.Severity > mandatoryRedSeverity {
			mandatoryRedSeverity = c.Severity
		}
		if item.AgeMonths != ageUnknown && item.AgeMonths <= recentMonthsMax {
			recentHighSeverity = true
		}
	}

	switch {
	case mandatoryRedSeverity >= 4:
		floor := math.Min(100, 95+float64(mandatoryRedSeverity-4)*5)
		return math.Max(composite, floor), model.RiskLevelRed, math.Max(confidence, 0.9)
	case highSeverityOffenders >= 2:
		return 100, model.RiskLevelRed, 1
	case recentHighSeverity:
		return math.Max(composite, 98), model.RiskLevelRed, math.Max(confidence, 0.95)
	default:
		return composite, model.BandScore(composite), confidence
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
