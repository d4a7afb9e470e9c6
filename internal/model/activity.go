package model

import "encoding/json"

// Activity is a JSON-LD-shaped ActivityStreams object (§3.4). Raw is kept
// alongside the parsed fields so re-serialization is lossless (needed for
// JSON-signature verification, which hashes the canonicalized original
// document, not a round-tripped reconstruction).
type Activity struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Actor    string          `json:"actor"`
	Object   json.RawMessage `json:"object,omitempty"`
	To       []string        `json:"to,omitempty"`
	CC       []string        `json:"cc,omitempty"`
	Audience []string        `json:"audience,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseActivity decodes raw into an Activity, retaining raw for later
// signature verification.
func ParseActivity(raw json.RawMessage) (*Activity, error) {
	var a Activity
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	a.Raw = raw
	return &a, nil
}

// Recipients returns the deduplicated union of To, CC and Audience.
func (a *Activity) Recipients() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(a.To)+len(a.CC)+len(a.Audience))
	for _, group := range [][]string{a.To, a.CC, a.Audience} {
		for _, r := range group {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
