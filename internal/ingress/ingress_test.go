package ingress

import (
	"context"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/logging"
	"github.com/fedcore/federation/internal/sigs"
)

// Authenticate trusts the transport-verified actor claim without requiring
// a JSON signature.
func TestAuthenticateTrustsHTTPSignature(t *testing.T) {
	raw := json.RawMessage(`{"id":"https://a.example/activities/1","type":"Create","actor":"https://a.example/users/1"}`)
	err := Authenticate(raw, "https://a.example/users/1", nullResolver{}, nil, true)
	if err != nil {
		t.Fatalf("expected trust via HTTP signature, got %v", err)
	}
}

// Without an HTTP signature, an activity with no JSON signature is rejected.
func TestAuthenticateRejectsUnsignedWithoutHTTPSignature(t *testing.T) {
	raw := json.RawMessage(`{"id":"https://a.example/activities/1","type":"Create","actor":"https://a.example/users/1"}`)
	err := Authenticate(raw, "https://a.example/users/1", nullResolver{}, nil, false)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if code, _ := aperrors.CodeOf(err); code != aperrors.CodeNoSignature {
		t.Fatalf("expected no_signature code, got %v", err)
	}
}

type nullResolver struct{}

func (nullResolver) ResolveEd25519(string) (ed25519.PublicKey, error) { return nil, errors.New("unused") }
func (nullResolver) ResolveRSA(string) (*rsa.PublicKey, error)        { return nil, errors.New("unused") }
func (nullResolver) ResolveEthereumAddress(string) (string, error)    { return "", errors.New("unused") }

// successful worker run: handler returns nil, job is not requeued.
func TestRunWorkerDeletesJobOnSuccess(t *testing.T) {
	q := NewQueue(8)
	job := &IncomingActivityJob{Activity: json.RawMessage(`{}`)}
	q.Push(job)

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan struct{}, 1)
	handler := func(ctx context.Context, j *IncomingActivityJob) error {
		handled <- struct{}{}
		return nil
	}
	go RunWorker(ctx, q, 4, time.Second, 10*time.Millisecond, 2, handler, logging.Discard())
	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
	cancel()
	time.Sleep(10 * time.Millisecond)
	if q.Len() != 0 {
		t.Fatalf("expected queue drained, got %d pending", q.Len())
	}
}

// A network-retriable handler error requeues the job with backoff, up to
// retriesMax.
func TestRunWorkerRequeuesRetriableError(t *testing.T) {
	q := NewQueue(8)
	job := &IncomingActivityJob{Activity: json.RawMessage(`{}`)}
	q.Push(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	handler := func(ctx context.Context, j *IncomingActivityJob) error {
		atomic.AddInt32(&attempts, 1)
		return aperrors.New(aperrors.KindFetch, aperrors.CodeHTTPError, "network blip")
	}
	go RunWorker(ctx, q, 4, time.Second, 5*time.Millisecond, 2, handler, logging.Discard())

	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt32(&attempts) < 2 {
		t.Fatalf("expected at least 2 attempts after requeue, got %d", attempts)
	}
	if job.FailureCount == 0 {
		t.Fatal("expected failureCount incremented")
	}
}

// A non-retriable handler error drops the job without requeue.
func TestRunWorkerDropsNonRetriableError(t *testing.T) {
	q := NewQueue(8)
	job := &IncomingActivityJob{Activity: json.RawMessage(`{}`)}
	q.Push(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	handler := func(ctx context.Context, j *IncomingActivityJob) error {
		atomic.AddInt32(&attempts, 1)
		return aperrors.New(aperrors.KindAuth, aperrors.CodeVerificationFailed, "bad signature")
	}
	go RunWorker(ctx, q, 4, time.Second, 5*time.Millisecond, 2, handler, logging.Discard())

	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt (no requeue), got %d", attempts)
	}
}

var _ sigs.KeyResolver = nullResolver{}
