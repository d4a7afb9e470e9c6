package ingress

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fedcore/federation/internal/aperrors"
)

// Queue is an in-memory FIFO of pending jobs with delayed re-queue support,
// used by the ingress worker loop (§4.5 step 1). There is no durability
// requirement in scope here; a real deployment would back this with the
// same database handle store.Activities already uses.
type Queue struct {
	ch chan *IncomingActivityJob
}

func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan *IncomingActivityJob, capacity)}
}

// Push enqueues job for immediate processing.
func (q *Queue) Push(job *IncomingActivityJob) {
	q.ch <- job
}

// RequeueAfter re-enqueues job after d elapses (§4.5 step 3's constant
// 10-minute backoff).
func (q *Queue) RequeueAfter(job *IncomingActivityJob, d time.Duration) {
	time.AfterFunc(d, func() { q.Push(job) })
}

// PopBatch blocks for the first job (or ctx cancellation), then drains up
// to n-1 further jobs that are immediately available without blocking.
func (q *Queue) PopBatch(ctx context.Context, n int) []*IncomingActivityJob {
	select {
	case <-ctx.Done():
		return nil
	case job := <-q.ch:
		batch := []*IncomingActivityJob{job}
		for len(batch) < n {
			select {
			case j := <-q.ch:
				batch = append(batch, j)
			default:
				return batch
			}
		}
		return batch
	}
}

// Len reports the number of jobs currently ready (test/metrics use).
func (q *Queue) Len() int { return len(q.ch) }

// HandlerFunc processes one authenticated activity job.
type HandlerFunc func(ctx context.Context, job *IncomingActivityJob) error

// RunWorker pops batches from q and dispatches each job to handler under a
// per-job deadline, until ctx is cancelled (§4.5). Grounded on the same
// goroutine-fan-out-over-WaitGroup idiom as internal/egress and the
// teacher's HealthChecker.tick (core/fault_tolerance.go).
func RunWorker(ctx context.Context, q *Queue, batchSize int, jobTimeout, retryBackoff time.Duration, retriesMax int, handler HandlerFunc, log *logrus.Entry) {
	for {
		if ctx.Err() != nil {
			return
		}
		batch := q.PopBatch(ctx, batchSize)
		if len(batch) == 0 {
			continue
		}
		var wg sync.WaitGroup
		for _, job := range batch {
			wg.Add(1)
			go func(j *IncomingActivityJob) {
				defer wg.Done()
				processJob(ctx, q, j, jobTimeout, retryBackoff, retriesMax, handler, log)
			}(job)
		}
		wg.Wait()
	}
}

// processJob runs handler under a per-job deadline and applies §4.5 step
// 3-4's outcome rules: success deletes the job (falls out of scope);
// timeout drops it with a log; a network-retriable error re-queues with
// backoff up to retriesMax; any other error drops it.
func processJob(ctx context.Context, q *Queue, job *IncomingActivityJob, jobTimeout, retryBackoff time.Duration, retriesMax int, handler HandlerFunc, log *logrus.Entry) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- handler(jobCtx, job) }()

	select {
	case <-jobCtx.Done():
		if log != nil {
			log.Warn("ingress job timed out, dropping")
		}
	case err := <-done:
		if err == nil {
			return
		}
		if aperrors.IsRetriable(err) && job.FailureCount < retriesMax {
			job.FailureCount++
			q.RequeueAfter(job, retryBackoff)
			return
		}
		if log != nil {
			log.WithError(err).Warn("ingress job failed, dropping")
		}
	}
}
