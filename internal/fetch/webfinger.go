package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/ids"
)

// JRDLink is one WebFinger JRD link entry.
type JRDLink struct {
	Rel        string            `json:"rel"`
	Type       string            `json:"type,omitempty"`
	Href       string            `json:"href,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// JRD is a WebFinger JSON Resource Descriptor (§6.2).
type JRD struct {
	Subject string    `json:"subject"`
	Links   []JRDLink `json:"links"`
}

const apContextType = "application/activity+json"

// LookupWebFinger resolves addr via /.well-known/webfinger and returns the
// actor id from the self-link (§4.4, §6.2): the first self link whose
// `type` property disambiguates a Group actor, otherwise the first self
// link of any type.
func (a *FetchAgent) LookupWebFinger(ctx context.Context, addr ids.ActorAddress) (string, error) {
	url := fmt.Sprintf("https://%s/.well-known/webfinger?resource=%s", addr.Host, addr.ToAcctURI())

	ctx, cancel := context.WithTimeout(ctx, a.WebfingerTimeout)
	defer cancel()

	body, err := a.FetchJSON(ctx, url)
	if err != nil {
		return "", err
	}

	var jrd JRD
	if err := json.Unmarshal(body, &jrd); err != nil {
		return "", aperrors.Wrap(aperrors.KindFetch, aperrors.CodeParseError, "webfinger JRD", err)
	}
	if jrd.Subject != addr.ToAcctURI() {
		return "", aperrors.New(aperrors.KindFetch, aperrors.CodeParseError, "subject does not match requested account")
	}

	var firstSelf string
	for _, link := range jrd.Links {
		if link.Rel != "self" || link.Type != apContextType {
			continue
		}
		if firstSelf == "" {
			firstSelf = link.Href
		}
		if link.Properties["https://www.w3.org/ns/activitystreams#type"] == "Group" {
			return link.Href, nil
		}
	}
	if firstSelf == "" {
		return "", aperrors.New(aperrors.KindFetch, aperrors.CodeParseError, "no self link in webfinger response")
	}
	return firstSelf, nil
}
