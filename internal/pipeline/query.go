package pipeline

import (
	"strings"

	"github.com/sponsorlens/riskscan/internal/model"
)

// riskTopicTerms are the risk-signal vocabulary OR-ed into evidence queries.
// Grouped so each composed query stays under provider length limits.
var riskTopicTerms = [][]string{
	{"allegations", "scandal", "controversy", "exposed", "accused"},
	{"lawsuit", "fraud", "scam", "arrested", "charged"},
	{"\"hate speech\"", "racist", "harassment", "assault", "abuse"},
	{"grooming", "predator", "minor", "inappropriate", "misconduct"},
}

// anchorTerms are benign identity-anchor topics. They retrieve
// non-controversial reference text the disambiguator can validate the
// creator's identity against.
var anchorTerms = []string{"biography", "interview", "channel", "career"}

// BuildQueries composes the boolean search queries for a profile: an OR-group
// of quoted identity tokens combined with each risk-topic group, plus one
// benign anchor query.
func BuildQueries(profile model.EntityProfile) []string {
	identity := identityGroup(profile)
	if identity == "" {
		return nil
	}

	queries := make([]string, 0, len(riskTopicTerms)+1)
	for _, group := range riskTopicTerms {
		queries = append(queries, identity+" ("+strings.Join(group, " OR ")+")")
	}
	queries = append(queries, identity+" ("+strings.Join(anchorTerms, " OR ")+")")
	return queries
}

// identityGroup quotes and OR-joins the profile's identifiers.
func identityGroup(profile model.EntityProfile) string {
	quoted := make([]string, 0, len(profile.Identifiers))
	for _, id := range profile.Identifiers {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		quoted = append(quoted, `"`+id+`"`)
	}
	if len(quoted) == 0 {
		return ""
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}
