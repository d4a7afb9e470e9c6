package model

import "time"

// Visibility enumerates a post's audience (§3.4).
type Visibility string

const (
	VisibilityPublic       Visibility = "Public"
	VisibilityFollowers    Visibility = "Followers"
	VisibilitySubscribers  Visibility = "Subscribers"
	VisibilityConversation Visibility = "Conversation"
	VisibilityDirect       Visibility = "Direct"
)

// Post is the content-bearing object of §3.4.
type Post struct {
	ID             string     `json:"id"`
	Author         string     `json:"author"`
	Content        string     `json:"content,omitempty"`
	Source         string     `json:"source,omitempty"`
	ConversationID string     `json:"conversationId,omitempty"`
	InReplyTo      string     `json:"inReplyTo,omitempty"`
	RepostOf       string     `json:"repostOf,omitempty"`
	Visibility     Visibility `json:"visibility"`
	Attachments    []string   `json:"attachments,omitempty"`
	Mentions       []string   `json:"mentions,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	LinkedPosts    []string   `json:"linkedPosts,omitempty"` // quotes
	Emojis         []string   `json:"emojis,omitempty"`
	Reactions      []string   `json:"reactions,omitempty"`
	ObjectID       string     `json:"objectId,omitempty"` // remote id, if imported
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// IsRepost reports whether this post is a repost (RepostOf set).
//
// Supplemented from original_source/mitra_models/src/posts/types.rs, which
// validates a repost's Post row before insertion: a repost carries no
// content of its own. Dropped by the spec.md distillation but cheap to keep;
// ValidateRepostInvariant below builds on it.
func (p *Post) IsRepost() bool { return p.RepostOf != "" }

// ValidateRepostInvariant checks §3.4's repost invariant: a repost's
// content, mentions, tags, links, attachments and conversation are empty.
func (p *Post) ValidateRepostInvariant() bool {
	if !p.IsRepost() {
		return true
	}
	return p.Content == "" &&
		len(p.Mentions) == 0 &&
		len(p.Tags) == 0 &&
		len(p.LinkedPosts) == 0 &&
		len(p.Attachments) == 0 &&
		p.ConversationID == ""
}
