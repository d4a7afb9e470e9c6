// Package egress implements the outgoing-activity delivery pipeline of
// spec.md §4.6: recipient expansion/dedup/sorting, signing, per-host
// concurrent fan-out, retry with backoff, and reachability tracking. There
// is no teacher equivalent for ActivityPub delivery; the fan-out worker's
// concurrency idiom is grounded on the teacher's HealthChecker.tick
// (core/fault_tolerance.go): a plain sync.WaitGroup fanning out goroutines
// over a mutex-guarded shared map, not a worker-pool library.
package egress

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/url"
	"sort"
	"time"

	"github.com/fedcore/federation/internal/sigs"
	"github.com/fedcore/federation/internal/store"
)

// Recipient is one destination inbox of an outgoing job (§4.6).
type Recipient struct {
	ActorID       string
	Inbox         string
	Host          string
	IsPrimary     bool
	IsDelivered   bool
	IsUnreachable bool
	IsGone        bool
	IsLocal       bool
}

// RawRecipient is an addressed actor before inbox expansion/dedup.
type RawRecipient struct {
	ActorID   string
	Inbox     string
	IsPrimary bool
}

// SenderIdentity is the signing key used to attach a proof to an unsigned
// activity (§4.6 step 4).
type SenderIdentity struct {
	ActorID    string
	KeyID      string
	PrivateKey ed25519.PrivateKey
}

// OutgoingActivityJob is one delivery job (§4.6).
type OutgoingActivityJob struct {
	Activity     json.RawMessage
	Sender       string
	Recipients   []*Recipient
	FailureCount int
}

// BuildJob expands, dedups, sorts, signs and persists an outgoing job
// following the five construction steps of §4.6.
func BuildJob(
	ctx context.Context,
	activity json.RawMessage,
	sender SenderIdentity,
	raw []RawRecipient,
	localOrigin string,
	activities store.Activities,
	canonicalID string,
	createdAt time.Time,
) (*OutgoingActivityJob, error) {
	recipients := expandAndDedup(raw, localOrigin)

	signed := activity
	if !sigs.HasProof(activity) {
		out, err := sigs.AttachEddsaProof(activity, sender.PrivateKey, sender.KeyID, createdAt)
		if err != nil {
			return nil, err
		}
		signed = out
	}

	job := &OutgoingActivityJob{
		Activity:   signed,
		Sender:     sender.ActorID,
		Recipients: recipients,
	}

	if err := activities.Insert(ctx, canonicalID, signed); err != nil {
		return nil, err
	}
	for _, r := range job.Recipients {
		if !r.IsLocal {
			continue
		}
		if err := activities.AppendToInbox(ctx, r.ActorID, canonicalID); err != nil {
			return nil, err
		}
		r.IsDelivered = true
	}

	return job, nil
}

// expandAndDedup implements §4.6 steps 1-3: dedup at the inbox URL,
// primary ties break toward primary, mark isLocal, then sort primary-first
// and by inbox URL (S4).
func expandAndDedup(raw []RawRecipient, localOrigin string) []*Recipient {
	byInbox := make(map[string]*Recipient, len(raw))
	order := make([]string, 0, len(raw))

	for _, r := range raw {
		host := hostOf(r.Inbox)
		existing, ok := byInbox[r.Inbox]
		if !ok {
			rec := &Recipient{
				ActorID:   r.ActorID,
				Inbox:     r.Inbox,
				Host:      host,
				IsPrimary: r.IsPrimary,
				IsLocal:   sameOrigin(r.Inbox, localOrigin),
			}
			byInbox[r.Inbox] = rec
			order = append(order, r.Inbox)
			continue
		}
		if r.IsPrimary {
			existing.IsPrimary = true
		}
	}

	out := make([]*Recipient, 0, len(order))
	for _, inbox := range order {
		out = append(out, byInbox[inbox])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].Inbox < out[j].Inbox
	})
	return out
}

func hostOf(inbox string) string {
	u, err := url.Parse(inbox)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func sameOrigin(inbox, localOrigin string) bool {
	u, err := url.Parse(inbox)
	if err != nil {
		return false
	}
	origin, err := url.Parse(localOrigin)
	if err != nil {
		return false
	}
	return u.Scheme == origin.Scheme && u.Host == origin.Host
}
