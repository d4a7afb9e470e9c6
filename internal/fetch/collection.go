package fetch

import (
	"context"
	"encoding/json"

	"github.com/fedcore/federation/internal/aperrors"
)

// rawCollection is the minimal shape needed to walk either an inline
// Collection/OrderedCollection or a paged one (§4.4).
type rawCollection struct {
	Type          string          `json:"type"`
	Items         json.RawMessage `json:"items,omitempty"`
	OrderedItems  json.RawMessage `json:"orderedItems,omitempty"`
	First         json.RawMessage `json:"first,omitempty"`
	Next          string          `json:"next,omitempty"`
}

func (c *rawCollection) items() json.RawMessage {
	if len(c.OrderedItems) > 0 {
		return c.OrderedItems
	}
	return c.Items
}

// WalkCollection fetches up to limit item ids from the collection at url,
// across its first page and at most one next page (§4.4). Mastodon-style
// replies collections place self-replies on the first page and others on
// the next; limit bounds the sum of both.
func (a *FetchAgent) WalkCollection(ctx context.Context, url string, limit int) ([]string, error) {
	body, err := a.FetchJSON(ctx, url)
	if err != nil {
		return nil, err
	}
	var col rawCollection
	if err := json.Unmarshal(body, &col); err != nil {
		return nil, aperrors.Wrap(aperrors.KindFetch, aperrors.CodeParseError, "collection", err)
	}

	if ids := decodeItemIDs(col.items()); len(ids) > 0 {
		return truncate(ids, limit), nil
	}

	if len(col.First) == 0 {
		return nil, nil
	}

	firstPage, err := a.resolvePage(ctx, col.First)
	if err != nil {
		return nil, err
	}

	out := decodeItemIDs(firstPage.items())
	if len(out) < limit && firstPage.Next != "" {
		nextBody, err := a.FetchJSON(ctx, firstPage.Next)
		if err != nil {
			return truncate(out, limit), nil
		}
		var nextPage rawCollection
		if err := json.Unmarshal(nextBody, &nextPage); err == nil {
			out = append(out, decodeItemIDs(nextPage.items())...)
		}
	}
	return truncate(out, limit), nil
}

// resolvePage interprets `first` as either an inline page object or a URL
// to fetch.
func (a *FetchAgent) resolvePage(ctx context.Context, first json.RawMessage) (*rawCollection, error) {
	var asString string
	if err := json.Unmarshal(first, &asString); err == nil {
		body, err := a.FetchJSON(ctx, asString)
		if err != nil {
			return nil, err
		}
		var page rawCollection
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, aperrors.Wrap(aperrors.KindFetch, aperrors.CodeParseError, "collection page", err)
		}
		return &page, nil
	}
	var page rawCollection
	if err := json.Unmarshal(first, &page); err != nil {
		return nil, aperrors.Wrap(aperrors.KindFetch, aperrors.CodeParseError, "collection first page", err)
	}
	return &page, nil
}

// decodeItemIDs accepts either a list of plain id strings or a list of
// inline objects carrying an "id" field.
func decodeItemIDs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var asStrings []string
	if err := json.Unmarshal(raw, &asStrings); err == nil {
		return asStrings
	}
	var asObjects []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &asObjects); err != nil {
		return nil
	}
	out := make([]string, 0, len(asObjects))
	for _, o := range asObjects {
		if o.ID != "" {
			out = append(out, o.ID)
		}
	}
	return out
}

func truncate(ids []string, limit int) []string {
	if limit > 0 && len(ids) > limit {
		return ids[:limit]
	}
	return ids
}
