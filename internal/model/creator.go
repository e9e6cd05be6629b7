package model

import "strings"

// Creator identifies the public figure under evaluation. It is supplied by
// the caller and never mutated by the pipeline.
type Creator struct {
	Name       string `json:"name"`
	Handle     string `json:"handle,omitempty"`
	ChannelID  string `json:"channel_id,omitempty"`
	ChannelURL string `json:"channel_url,omitempty"`
}

// Key returns the persistence key for this creator. Outcomes are stored one
// per creator, keyed by lowercased name, and overwritten on rescan.
func (c Creator) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// EntityProfile is the disambiguation view of a creator: the primary name
// plus every identifier string evidence can be matched against. Built once
// per run and discarded afterwards.
type EntityProfile struct {
	PrimaryName string   `json:"primary_name"`
	LegalName   string   `json:"legal_name,omitempty"`
	Identifiers []string `json:"identifiers"`
}

// BuildEntityProfile derives an EntityProfile from a creator and optional
// caller-supplied aliases. The identifier set always contains the primary
// name and handle; duplicates are removed case-insensitively.
func BuildEntityProfile(creator Creator, aliases []string) EntityProfile {
	profile := EntityProfile{
		PrimaryName: strings.TrimSpace(creator.Name),
	}

	add := func(ids []string, v string) []string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ids
		}
		for _, existing := range ids {
			if strings.EqualFold(existing, v) {
				return ids
			}
		}
		return append(ids, v)
	}

	ids := add(nil, creator.Name)
	ids = add(ids, creator.Handle)
	ids = add(ids, creator.ChannelID)
	if frag := channelFragment(creator.ChannelURL); frag != "" {
		ids = add(ids, frag)
	}
	for _, alias := range aliases {
		ids = add(ids, alias)
	}
	profile.Identifiers = ids
	return profile
}

// channelFragment extracts the last path segment from a channel URL, e.g.
// "https://youtube.com/@OMGitsAliA" -> "@OMGitsAliA".
func channelFragment(channelURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(channelURL), "/")
	if trimmed == "" {
		return ""
	}
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return ""
	}
	frag := trimmed[idx+1:]
	if frag == "" || strings.Contains(frag, ".") {
		return ""
	}
	return frag
}
