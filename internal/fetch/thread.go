package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/model"
	"github.com/fedcore/federation/internal/store"
)

// RecursionDepthMax bounds the number of genuine network fetches a single
// post-thread import may perform (§4.4, invariant 9). Redirect follow-ups
// reuse the already-fetched object and do not count against it.
const RecursionDepthMax = 50

// rawObject is the minimal ActivityStreams Note/Article/Question shape the
// importer needs to walk a thread and persist it as a model.Post.
type rawObject struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	AttributedTo string         `json:"attributedTo"`
	Content      string         `json:"content"`
	InReplyTo    string         `json:"inReplyTo,omitempty"`
	To           []string       `json:"to,omitempty"`
	CC           []string       `json:"cc,omitempty"`
	Published    time.Time      `json:"published"`
	Tag          []rawObjectTag `json:"tag,omitempty"`
}

// rawObjectTag covers both Mention tags and FEP-e232-style quote links; the
// latter is how get_object_links' linked-post extraction is grounded here
// (the corpus does not carry handlers::create's actual body, so quote-link
// tags are the closest real-world equivalent of "links extracted from the
// content").
type rawObjectTag struct {
	Type string `json:"type"`
	Href string `json:"href,omitempty"`
	Name string `json:"name,omitempty"`
}

const publicAddress = "https://www.w3.org/ns/activitystreams#Public"

// ImportThread walks the reply chain and quote links rooted at rootID,
// following spec.md §4.4's "Post-thread import": a LIFO queue, a visited
// set of ids already fetched or known local, and a separate redirect map
// recording observed-but-not-refetched id rewrites. On success the full
// ancestor chain is inserted root-first via posts.InsertThread.
func ImportThread(ctx context.Context, a *FetchAgent, fc *FetcherContext, posts store.Posts, rootID string) error {
	queue := []string{rootID}
	visited := make(map[string]bool)
	redirects := make(map[string]string)
	var fetchCount int
	var objects []rawObject

	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if visited[id] {
			continue
		}
		if redirect, ok := redirects[id]; ok {
			id = redirect
		}
		if visited[id] {
			continue
		}

		if posts.IsLocal(ctx, id) {
			visited[id] = true
			continue
		}
		if existing, err := posts.GetByID(ctx, id); err == nil && existing != nil {
			visited[id] = true
			continue
		}

		if fetchCount >= RecursionDepthMax {
			return aperrors.New(aperrors.KindFetch, aperrors.CodeRecursionLimit, id)
		}

		url, err := fc.ResolveURL(id)
		if err != nil {
			return err
		}
		body, err := a.FetchJSON(ctx, url)
		if err != nil {
			return err
		}
		fetchCount++

		var obj rawObject
		if err := json.Unmarshal(body, &obj); err != nil {
			return aperrors.Wrap(aperrors.KindFetch, aperrors.CodeParseError, id, err)
		}

		if obj.ID != "" && obj.ID != id {
			redirects[id] = obj.ID
			id = obj.ID
			if visited[id] {
				continue
			}
		}

		visited[id] = true

		if obj.InReplyTo != "" {
			queue = append(queue, obj.InReplyTo)
		}
		for _, linked := range objectLinks(obj) {
			queue = append([]string{linked}, queue...)
		}

		objects = append(objects, obj)
	}

	if len(objects) == 0 {
		return nil
	}

	// objects were appended in fetch order (leaf to root); reverse so the
	// root is inserted first.
	out := make([]*model.Post, len(objects))
	for i, obj := range objects {
		out[len(objects)-1-i] = objectToPost(obj)
	}
	return posts.InsertThread(ctx, out)
}

// objectLinks extracts the ids of objects linked from content: quote-post
// tags (FEP-e232 style) carrying an href. Plain Mention tags reference
// actors, not posts, and are not walked.
func objectLinks(obj rawObject) []string {
	var out []string
	for _, tag := range obj.Tag {
		if tag.Type != "Link" || tag.Href == "" {
			continue
		}
		out = append(out, tag.Href)
	}
	return out
}

// objectToPost maps a fetched ActivityStreams object into a model.Post
// (§3.4, §4.4). Visibility is derived from the to/cc audience the same way
// the teacher's actor handlers classify inbound mail: Public address in
// `to` is public, in `cc` only is followers-only, otherwise direct.
func objectToPost(obj rawObject) *model.Post {
	var mentions []string
	var tags []string
	var linkedPosts []string
	for _, tag := range obj.Tag {
		switch tag.Type {
		case "Mention":
			if tag.Href != "" {
				mentions = append(mentions, tag.Href)
			}
		case "Hashtag":
			if tag.Name != "" {
				tags = append(tags, tag.Name)
			}
		case "Link":
			if tag.Href != "" {
				linkedPosts = append(linkedPosts, tag.Href)
			}
		}
	}

	return &model.Post{
		ID:          obj.ID,
		ObjectID:    obj.ID,
		Author:      obj.AttributedTo,
		Content:     obj.Content,
		InReplyTo:   obj.InReplyTo,
		Visibility:  visibilityOf(obj),
		Mentions:    mentions,
		Tags:        tags,
		LinkedPosts: linkedPosts,
		CreatedAt:   obj.Published,
		UpdatedAt:   obj.Published,
	}
}

func visibilityOf(obj rawObject) model.Visibility {
	if containsAddress(obj.To, publicAddress) {
		return model.VisibilityPublic
	}
	if containsAddress(obj.CC, publicAddress) {
		return model.VisibilityFollowers
	}
	return model.VisibilityDirect
}

func containsAddress(addrs []string, target string) bool {
	for _, a := range addrs {
		if a == target {
			return true
		}
	}
	return false
}
