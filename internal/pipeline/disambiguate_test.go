package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/pkg/anthropic"
)

func aliaProfile() model.EntityProfile {
	return model.BuildEntityProfile(model.Creator{
		Name:       "Ali-A",
		Handle:     "OMGitsAliA",
		ChannelURL: "https://youtube.com/@OMGitsAliA",
	}, nil)
}

func TestHeuristicMatch_MisleadingTermRejects(t *testing.T) {
	// "Alias" is within edit distance 2 of "ali-a"; without the misleading
	// hard-reject it would slip through as a fuzzy match.
	text := "Alias season 3 review: the spy thriller returns with more aliases"

	decision := HeuristicMatch(text, aliaProfile())

	assert.False(t, decision.Accepted)
	assert.False(t, decision.Inconclusive)
	assert.Equal(t, model.RejectedMisleading, decision.Reason)
}

func TestHeuristicMatch_IdentifierOverridesMisleading(t *testing.T) {
	// A whole-word identifier hit wins even when a misleading term is present.
	text := "Ali-A denies the alias rumors in his latest upload"

	decision := HeuristicMatch(text, aliaProfile())

	assert.True(t, decision.Accepted)
	assert.Equal(t, model.MatchIdentifier, decision.Reason)
}

func TestHeuristicMatch_WholeWordIdentifier(t *testing.T) {
	text := "The YouTuber Ali-A posted a new Fortnite video"

	decision := HeuristicMatch(text, aliaProfile())

	assert.True(t, decision.Accepted)
	assert.Equal(t, model.MatchIdentifier, decision.Reason)
}

func TestHeuristicMatch_ChannelFragmentOverridesMisleading(t *testing.T) {
	// The only identifier present in the text is the @-prefixed channel
	// fragment; the misleading term must not win against it.
	profile := model.BuildEntityProfile(model.Creator{
		Name:       "Ali-A",
		ChannelURL: "https://youtube.com/@OMGitsAliA",
	}, nil)
	text := "Alias fans tagged @OMGitsAliA in the thread"

	decision := HeuristicMatch(text, profile)

	assert.True(t, decision.Accepted)
	assert.Equal(t, model.MatchIdentifier, decision.Reason)
}

func TestWholeWordMatch(t *testing.T) {
	tests := []struct {
		text       string
		identifier string
		want       bool
	}{
		{"follow @omgitsalia for clips", "@omgitsalia", true},
		{"@omgitsalia posted", "@omgitsalia", true},
		{"mail@omgitsalia.example", "@omgitsalia", false},
		{"the youtuber ali-a returns", "ali-a", true},
		{"ali-anderson wrote this", "ali-a", false},
		{"nothing here", "ali-a", false},
		{"", "ali-a", false},
		{"anything", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wholeWordMatch(tt.text, tt.identifier),
			"text %q identifier %q", tt.text, tt.identifier)
	}
}

func TestHeuristicMatch_HandleMatch(t *testing.T) {
	text := "Follow @OMGitsAliA for daily gaming clips"

	decision := HeuristicMatch(text, aliaProfile())

	assert.True(t, decision.Accepted)
	assert.Equal(t, model.MatchIdentifier, decision.Reason)
}

func TestHeuristicMatch_FuzzyTypo(t *testing.T) {
	// "alia" is distance 1 from "ali-a": a plausible typo.
	text := "interview with alia about his esports career plans"

	decision := HeuristicMatch(text, aliaProfile())

	assert.True(t, decision.Accepted)
	assert.Equal(t, model.MatchFuzzy, decision.Reason)
}

func TestHeuristicMatch_ContextualMatch(t *testing.T) {
	// "alistair" is distance 4 from "ali-a": too far for the typo rule, close
	// enough when creator-ecosystem vocabulary corroborates.
	text := "the streamer alistair faced backlash from subscribers"

	decision := HeuristicMatch(text, aliaProfile())

	assert.True(t, decision.Accepted)
	assert.Equal(t, model.MatchContextual, decision.Reason)
}

func TestHeuristicMatch_Inconclusive(t *testing.T) {
	text := "quarterly report on semiconductor supply chains"

	decision := HeuristicMatch(text, aliaProfile())

	assert.False(t, decision.Accepted)
	assert.True(t, decision.Inconclusive)
}

func TestHeuristicMatch_DiacriticsFold(t *testing.T) {
	text := "Alí-A habló sobre su canal en una entrevista"

	decision := HeuristicMatch(text, aliaProfile())

	assert.True(t, decision.Accepted)
	assert.Equal(t, model.MatchIdentifier, decision.Reason)
}

func TestHeuristicMatch_Pure(t *testing.T) {
	text := "The YouTuber Ali-A posted a new video"
	profile := aliaProfile()

	first := HeuristicMatch(text, profile)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, HeuristicMatch(text, profile))
	}
}

func TestIsLikelyAboutCreator(t *testing.T) {
	profile := aliaProfile()
	assert.True(t, IsLikelyAboutCreator("Ali-A uploads daily", profile))
	assert.False(t, IsLikelyAboutCreator("alias spy thriller recap", profile))
}

func TestDisambiguatePhase_SemanticFallback(t *testing.T) {
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`{"match": true, "reason": "career context matches"}`), nil
	}}

	items := []model.EvidenceItem{
		{Title: "A profile of a rising competitive gamer", URL: "https://example.com/profile"},
	}

	kept := DisambiguatePhase(context.Background(), items, aliaProfile(), ai, "test-model")

	require.Len(t, kept, 1)
	assert.Equal(t, model.MatchSemantic, kept[0].MatchReason)
	assert.Equal(t, 1, ai.callCount())
}

func TestDisambiguatePhase_SemanticFailureRejectsItem(t *testing.T) {
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse("not json at all"), nil
	}}

	items := []model.EvidenceItem{
		{Title: "An unrelated industry newsletter", URL: "https://example.com/news"},
	}

	kept := DisambiguatePhase(context.Background(), items, aliaProfile(), ai, "test-model")

	assert.Empty(t, kept)
}

func TestDisambiguatePhase_HeuristicSkipsRemote(t *testing.T) {
	ai := &fakeAI{handler: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		t.Fatal("remote pass should not be consulted for a heuristic accept")
		return nil, nil
	}}

	items := []model.EvidenceItem{
		{Title: "Ali-A hits 20 million subscribers", URL: "https://example.com/milestone"},
	}

	kept := DisambiguatePhase(context.Background(), items, aliaProfile(), ai, "test-model")

	require.Len(t, kept, 1)
	assert.Equal(t, model.MatchIdentifier, kept[0].MatchReason)
	assert.Equal(t, 0, ai.callCount())
}
