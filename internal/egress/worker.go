package egress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fedcore/federation/internal/store"
)

// DeliveryOutcome classifies how one delivery attempt resolved (§4.6).
type DeliveryOutcome int

const (
	OutcomeDelivered DeliveryOutcome = iota
	OutcomeGone
	OutcomeRetry
)

// DeliverFunc performs one HTTP POST of job.Activity to r.Inbox. body is a
// truncated response body for logging, meaningful only on OutcomeDelivered.
type DeliverFunc func(ctx context.Context, job *OutgoingActivityJob, r *Recipient) (outcome DeliveryOutcome, body []byte, err error)

func isFinal(r *Recipient) bool {
	return r.IsDelivered || r.IsGone || r.IsUnreachable
}

// RunFanOut delivers job to every non-final, non-local recipient, capped at
// poolSize concurrent deliveries with the invariant that at most one
// delivery per destination host is in flight at any instant (invariant 6).
// Grounded on the teacher's HealthChecker.tick (core/fault_tolerance.go):
// plain goroutines over a sync.WaitGroup, coordinated through a
// mutex-guarded map rather than a worker-pool library.
func RunFanOut(ctx context.Context, job *OutgoingActivityJob, poolSize int, filter store.FederationFilter, deliver DeliverFunc, log *logrus.Entry) {
	pending := make([]*Recipient, 0, len(job.Recipients))
	for _, r := range job.Recipients {
		if r.IsLocal || isFinal(r) {
			continue
		}
		if filter != nil && filter.IsRejected(r.Host) {
			r.IsUnreachable = true
			continue
		}
		pending = append(pending, r)
	}
	if len(pending) == 0 {
		return
	}

	var mu sync.Mutex
	inFlightHost := make(map[string]bool)
	sem := make(chan struct{}, poolSize)
	done := make(chan struct{}, len(pending))
	var wg sync.WaitGroup

	for len(pending) > 0 {
		mu.Lock()
		idx := -1
		for i, r := range pending {
			if !inFlightHost[r.Host] {
				idx = i
				break
			}
		}
		if idx == -1 {
			mu.Unlock()
			<-done
			continue
		}
		r := pending[idx]
		pending = append(pending[:idx:idx], pending[idx+1:]...)
		inFlightHost[r.Host] = true
		mu.Unlock()

		sem <- struct{}{}
		wg.Add(1)
		go func(rec *Recipient) {
			defer wg.Done()
			defer func() { <-sem }()
			outcome, body, err := deliver(ctx, job, rec)
			applyOutcome(rec, outcome, body, err, log)

			mu.Lock()
			delete(inFlightHost, rec.Host)
			mu.Unlock()
			done <- struct{}{}
		}(r)
	}
	wg.Wait()
}

func applyOutcome(r *Recipient, outcome DeliveryOutcome, body []byte, err error, log *logrus.Entry) {
	switch outcome {
	case OutcomeDelivered:
		r.IsDelivered = true
		if log != nil && len(body) > 0 {
			const max = 256
			if len(body) > max {
				body = body[:max]
			}
			log.WithField("inbox", r.Inbox).Debugf("delivered: %s", body)
		}
	case OutcomeGone:
		r.IsGone = true
	case OutcomeRetry:
		if log != nil && err != nil {
			log.WithField("inbox", r.Inbox).Warnf("delivery failed, retrying: %v", err)
		}
	}
}

// Backoff implements the §4.6/S5 exponential schedule:
// 30*(10^n+10) seconds for the nth retry (n >= 1).
func Backoff(attempt int) time.Duration {
	pow := 1
	for i := 0; i < attempt; i++ {
		pow *= 10
	}
	return time.Duration(30*(pow+10)) * time.Second
}

// UpdateReachability implements §4.6's post-attempt retry/reachability
// pass: for each remaining undelivered, non-local recipient, decide
// isUnreachable from gone/profile/staleness, then decide whether the job
// should be requeued with backoff or whether per-actor reachability should
// be persisted instead.
//
// now is the evaluation instant; requeueAt is non-zero iff the job should
// be retried.
func UpdateReachability(ctx context.Context, job *OutgoingActivityJob, actors store.Actors, unreachableNoRetry time.Duration, retriesMax int, now time.Time) (requeueAt time.Time, err error) {
	anyNonFinal := false
	for _, r := range job.Recipients {
		if r.IsLocal || r.IsDelivered {
			continue
		}
		if r.IsGone {
			r.IsUnreachable = true
			continue
		}
		actor, aerr := actors.GetByID(ctx, r.ActorID)
		if aerr != nil {
			r.IsUnreachable = true
			continue
		}
		if actor.UnreachableSince != nil && now.Sub(*actor.UnreachableSince) > unreachableNoRetry {
			r.IsUnreachable = true
			continue
		}
		if !isFinal(r) {
			anyNonFinal = true
		}
	}

	if anyNonFinal && job.FailureCount < retriesMax {
		job.FailureCount++
		return now.Add(Backoff(job.FailureCount)), nil
	}

	if err := persistReachability(ctx, job, actors, now); err != nil {
		return time.Time{}, err
	}
	return time.Time{}, nil
}

// persistReachability groups recipients by actor and marks each actor
// reachable (UnreachableSince cleared) iff any of its inboxes delivered,
// unreachable otherwise. An actor that is already unreachable keeps its
// earlier UnreachableSince; otherwise it is set to now.
func persistReachability(ctx context.Context, job *OutgoingActivityJob, actors store.Actors, now time.Time) error {
	deliveredByActor := make(map[string]bool)
	seen := make(map[string]bool)
	for _, r := range job.Recipients {
		if r.IsLocal {
			continue
		}
		seen[r.ActorID] = true
		if r.IsDelivered {
			deliveredByActor[r.ActorID] = true
		}
	}
	for actorID := range seen {
		if deliveredByActor[actorID] {
			if err := actors.SetUnreachableSince(ctx, actorID, nil); err != nil {
				return fmt.Errorf("clear reachability for %s: %w", actorID, err)
			}
			continue
		}
		if actor, err := actors.GetByID(ctx, actorID); err == nil && actor.UnreachableSince != nil {
			continue
		}
		ts := now
		if err := actors.SetUnreachableSince(ctx, actorID, &ts); err != nil {
			return fmt.Errorf("mark unreachable for %s: %w", actorID, err)
		}
	}
	return nil
}
