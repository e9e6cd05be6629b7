package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/pkg/anthropic"
)

// misleadingTerms are known near-homoglyphs of common creator names that
// routinely pollute search results. A whole-word identifier match always
// overrides a misleading-term collision.
var misleadingTerms = map[string]bool{
	"alias":      true,
	"aliases":    true,
	"aliexpress": true,
	"analysis":   true,
	"alibaba":    true,
	"alignment":  true,
	"alien":      true,
	"aliens":     true,
}

// contextTerms is the creator-ecosystem vocabulary that corroborates a loose
// fuzzy match on the primary name.
var contextTerms = map[string]bool{
	"youtuber":    true,
	"youtube":     true,
	"streamer":    true,
	"streaming":   true,
	"twitch":      true,
	"tiktok":      true,
	"influencer":  true,
	"vlog":        true,
	"vlogger":     true,
	"gamer":       true,
	"gaming":      true,
	"esports":     true,
	"creator":     true,
	"subscriber":  true,
	"subscribers": true,
	"fanbase":     true,
	"content":     true,
}

const (
	identifierDistanceMax = 2
	contextualDistanceMax = 4

	// minFuzzyTokenLen keeps trivially short tokens ("a", "of") out of the
	// edit-distance comparisons.
	minFuzzyTokenLen = 3
)

// Decision is the tagged outcome of a disambiguation pass.
type Decision struct {
	Accepted bool
	Reason   model.MatchReason
	// Inconclusive means the heuristic pass could not decide either way and
	// the remote semantic pass should be consulted.
	Inconclusive bool
}

// HeuristicMatch runs the local (no-network) disambiguation pass over the
// aggregated evidence text. It is pure: the same text and profile always
// produce the same decision.
func HeuristicMatch(text string, profile model.EntityProfile) Decision {
	normText := normalizeText(text)
	tokens := tokenize(normText)

	identifierHit := false
	for _, id := range profile.Identifiers {
		if wholeWordMatch(normText, normalizeText(id)) {
			identifierHit = true
			break
		}
	}

	for _, tok := range tokens {
		if misleadingTerms[tok] && !identifierHit {
			return Decision{Accepted: false, Reason: model.RejectedMisleading}
		}
	}

	if identifierHit {
		return Decision{Accepted: true, Reason: model.MatchIdentifier}
	}

	// Typo tolerance: a token within distance 2 of any identifier, provided
	// the token is not itself a misleading term.
	for _, tok := range tokens {
		if misleadingTerms[tok] || len([]rune(tok)) < minFuzzyTokenLen {
			continue
		}
		for _, id := range profile.Identifiers {
			if levenshtein.Distance(tok, normalizeText(id), nil) <= identifierDistanceMax {
				return Decision{Accepted: true, Reason: model.MatchFuzzy}
			}
		}
	}

	// Loose tolerance on the primary name, only when creator-ecosystem
	// vocabulary corroborates the domain.
	if containsContextTerm(tokens) {
		primary := normalizeText(profile.PrimaryName)
		for _, tok := range tokens {
			if misleadingTerms[tok] || len([]rune(tok)) < minFuzzyTokenLen {
				continue
			}
			if levenshtein.Distance(tok, primary, nil) <= contextualDistanceMax {
				return Decision{Accepted: true, Reason: model.MatchContextual}
			}
		}
	}

	return Decision{Inconclusive: true, Reason: model.RejectedUnverified}
}

// IsLikelyAboutCreator reports whether the local heuristic pass accepts the
// text as being about the profiled creator.
func IsLikelyAboutCreator(text string, profile model.EntityProfile) bool {
	return HeuristicMatch(text, profile).Accepted
}

func containsContextTerm(tokens []string) bool {
	for _, tok := range tokens {
		if contextTerms[tok] {
			return true
		}
	}
	return false
}

// diacriticFolder strips combining marks so "Alí" matches "Ali".
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases and folds diacritics.
func normalizeText(s string) string {
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// tokenSplit splits on every non-alphanumeric rune except @ ' + - which are
// significant inside handles and stage names.
func tokenSplit(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	switch r {
	case '@', '\'', '+', '-':
		return false
	}
	return true
}

func tokenize(normText string) []string {
	return strings.FieldsFunc(normText, tokenSplit)
}

// wholeWordMatch reports whether identifier appears in text with no
// alphanumeric rune adjacent on either side. Boundaries are checked
// manually: regexp \b anchors only against word characters, which would
// never match identifiers that start with @ or another symbol. Both
// arguments must already be normalized.
func wholeWordMatch(text, identifier string) bool {
	if identifier == "" {
		return false
	}
	for from := 0; from <= len(text)-len(identifier); {
		idx := strings.Index(text[from:], identifier)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(identifier)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

const semanticSystemPrompt = `You verify whether a piece of web text is about a specific online creator.
Rules:
- Return false if the text is about a different person who happens to have a similar name.
- Return false for fictional characters or unrelated namesakes.
- Return false when the name only appears as a substring of an unrelated word.
- Return true when career, platform, or domain context plausibly matches the creator.
Respond with a valid JSON object: {"match": <true|false>, "reason": "<short explanation>"}`

const semanticUserPrompt = `Creator identifiers: %s

Text:
%s

Is this text about the identified creator?`

// semanticCheck asks the classification provider whether the text concerns
// the profiled creator. Any transport or parse failure rejects the item
// (fail closed).
func semanticCheck(ctx context.Context, ai anthropic.Client, modelID string, text string, profile model.EntityProfile) bool {
	prompt := fmt.Sprintf(semanticUserPrompt, strings.Join(profile.Identifiers, ", "), text)

	resp, err := ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: 256,
		System:    semanticSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		zap.L().Warn("disambiguate: semantic check failed", zap.Error(err))
		return false
	}

	var result struct {
		Match  bool   `json:"match"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &result); err != nil {
		zap.L().Warn("disambiguate: unparsable semantic response", zap.Error(err))
		return false
	}
	return result.Match
}

// DisambiguatePhase filters evidence to items plausibly about the creator.
// The cheap heuristic pass decides most items; the remote semantic pass is
// consulted only when the heuristic is inconclusive. An item survives if
// either pass accepts it.
func DisambiguatePhase(ctx context.Context, items []model.EvidenceItem, profile model.EntityProfile, ai anthropic.Client, modelID string) []model.EvidenceItem {
	kept := make([]model.EvidenceItem, 0, len(items))
	rejected := 0

	for _, item := range items {
		text := item.AggregatedText()
		decision := HeuristicMatch(text, profile)

		if decision.Inconclusive {
			if semanticCheck(ctx, ai, modelID, text, profile) {
				decision = Decision{Accepted: true, Reason: model.MatchSemantic}
			} else {
				decision = Decision{Accepted: false, Reason: model.RejectedUnverified}
			}
		}

		if !decision.Accepted {
			rejected++
			zap.L().Debug("disambiguate: rejected item",
				zap.String("url", item.URL),
				zap.String("reason", string(decision.Reason)),
			)
			continue
		}

		item.MatchReason = decision.Reason
		kept = append(kept, item)
	}

	zap.L().Info("disambiguate: filtered evidence",
		zap.Int("input", len(items)),
		zap.Int("kept", len(kept)),
		zap.Int("rejected", rejected),
	)
	return kept
}
