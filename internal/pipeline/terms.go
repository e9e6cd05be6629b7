package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TermsConfig extends the built-in disambiguation vocabulary. Misleading
// terms are near-homoglyphs that hard-reject an item unless an identifier
// matches; context terms corroborate loose fuzzy matches.
type TermsConfig struct {
	Misleading []string `yaml:"misleading"`
	Context    []string `yaml:"context"`
}

// LoadTermsConfig reads a vocabulary extension from a YAML file.
func LoadTermsConfig(path string) (*TermsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "terms: read config %s", path)
	}

	// The YAML has a top-level "terms" key
	var wrapper struct {
		Terms TermsConfig `yaml:"terms"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "terms: parse config")
	}

	return &wrapper.Terms, nil
}

// ExtendTerms merges the loaded vocabulary into the built-in term sets.
// Call once at startup, before any disambiguation runs.
func ExtendTerms(tc *TermsConfig) {
	if tc == nil {
		return
	}
	for _, t := range tc.Misleading {
		if norm := normalizeText(t); norm != "" {
			misleadingTerms[norm] = true
		}
	}
	for _, t := range tc.Context {
		if norm := normalizeText(t); norm != "" {
			contextTerms[norm] = true
		}
	}
}
