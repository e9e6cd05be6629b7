package model

// Stance describes the creator's role in a piece of evidence.
type Stance string

const (
	StanceOffender  Stance = "offender"
	StanceVictim    Stance = "victim"
	StanceUnrelated Stance = "unrelated"
)

// Category is the fixed risk taxonomy. An empty category means the
// classifier could not place the item ("insufficient_data").
type Category string

const (
	CategoryHarmToMinors       Category = "harm_to_minors"
	CategorySexualMisconduct   Category = "sexual_misconduct"
	CategoryViolence           Category = "violence"
	CategoryHateSpeech         Category = "hate_speech"
	CategoryFraud              Category = "fraud"
	CategoryMisinformation     Category = "misinformation"
	CategoryGuidelineViolation Category = "guideline_violation"
	CategoryPersonalDrama      Category = "personal_drama"
	CategoryInsufficientData   Category = ""
)

// AllCategories lists every non-empty category for response validation.
func AllCategories() []Category {
	return []Category{
		CategoryHarmToMinors,
		CategorySexualMisconduct,
		CategoryViolence,
		CategoryHateSpeech,
		CategoryFraud,
		CategoryMisinformation,
		CategoryGuidelineViolation,
		CategoryPersonalDrama,
	}
}

// MandatoryRed reports whether this category can never be discounted by
// mitigation and forces a red outcome at high severity.
func (c Category) MandatoryRed() bool {
	return c == CategoryHarmToMinors || c == CategorySexualMisconduct
}

// Sentiment is the tone of the evidence toward the creator.
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Classification is the structured risk label attached to one evidence item.
// Produced once per item and cached by source URL.
type Classification struct {
	Stance     Stance    `json:"stance"`
	Category   Category  `json:"category"`
	Severity   int       `json:"severity"` // 1-5
	Sentiment  Sentiment `json:"sentiment"`
	Mitigation bool      `json:"mitigation"`
	Summary    string    `json:"summary"`
}

// MatchReason records why the disambiguator accepted or rejected an item.
type MatchReason string

const (
	MatchIdentifier        MatchReason = "identifier-match"
	MatchFuzzy             MatchReason = "fuzzy-match"
	MatchContextual        MatchReason = "contextual-match"
	MatchSemantic          MatchReason = "semantic-match"
	RejectedMisleading     MatchReason = "rejected-misleading"
	RejectedUnverified     MatchReason = "rejected-unverified"
)

// EvidenceItem is one candidate piece of public content. Created by the
// search stage and enriched in place as it moves through the pipeline.
type EvidenceItem struct {
	Title           string `json:"title"`
	Snippet         string `json:"snippet"`
	URL             string `json:"url"`
	MetaDescription string `json:"meta_description,omitempty"`
	RichSnippet     string `json:"rich_snippet,omitempty"`

	// SourceIndex is the item's rank in the deduplicated search results.
	SourceIndex int `json:"source_index"`

	// Enriched downstream. AgeMonths is -1 when no temporal signal was found.
	MatchReason    MatchReason     `json:"match_reason,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	RecencyWeight  float64         `json:"recency_weight,omitempty"`
	AgeMonths      int             `json:"age_months,omitempty"`
	Contribution   float64         `json:"contribution,omitempty"`
}

// AggregatedText joins the textual fields the disambiguator matches against.
func (e EvidenceItem) AggregatedText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{e.Title, e.Snippet, e.MetaDescription, e.URL} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
