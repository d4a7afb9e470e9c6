package egress

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedcore/federation/internal/model"
	"github.com/fedcore/federation/internal/store"
)

// S4 — Recipient sorting: four recipients with hosts b/a/c/d, "a" appears
// both primary and non-primary, "d" appears only primary. Final order must
// be [a(primary), d(primary), b, c], length 4.
func TestBuildJobS4RecipientSorting(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	_ = pub
	st := store.NewMemoryStore()

	raw := []RawRecipient{
		{ActorID: "https://b.example/users/1", Inbox: "https://b.example/inbox", IsPrimary: false},
		{ActorID: "https://a.example/users/1", Inbox: "https://a.example/inbox", IsPrimary: false},
		{ActorID: "https://a.example/users/1", Inbox: "https://a.example/inbox", IsPrimary: true},
		{ActorID: "https://c.example/users/1", Inbox: "https://c.example/inbox", IsPrimary: false},
		{ActorID: "https://d.example/users/1", Inbox: "https://d.example/inbox", IsPrimary: true},
	}

	sender := SenderIdentity{ActorID: "https://origin.example/users/me", KeyID: "https://origin.example/users/me#ed25519-key", PrivateKey: priv}
	activity := json.RawMessage(`{"id":"https://origin.example/activities/1","type":"Create","actor":"https://origin.example/users/me"}`)

	job, err := BuildJob(context.Background(), activity, sender, raw, "https://origin.example", st.Activities, "https://origin.example/activities/1", time.Now())
	if err != nil {
		t.Fatalf("BuildJob: %v", err)
	}

	if len(job.Recipients) != 4 {
		t.Fatalf("expected 4 deduped recipients, got %d", len(job.Recipients))
	}
	hosts := make([]string, len(job.Recipients))
	for i, r := range job.Recipients {
		hosts[i] = r.Host
	}
	want := []string{"a.example", "d.example", "b.example", "c.example"}
	for i, h := range want {
		if hosts[i] != h {
			t.Fatalf("position %d: got %q want %q (full: %v)", i, hosts[i], h, hosts)
		}
	}
	if !job.Recipients[0].IsPrimary || !job.Recipients[1].IsPrimary {
		t.Fatalf("expected first two recipients primary, got %+v %+v", job.Recipients[0], job.Recipients[1])
	}
	if job.Recipients[2].IsPrimary || job.Recipients[3].IsPrimary {
		t.Fatalf("expected last two recipients non-primary")
	}
}

// BuildJob attaches an eddsa-jcs-2022 proof when the activity carries none.
func TestBuildJobSignsUnsignedActivity(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	st := store.NewMemoryStore()
	sender := SenderIdentity{ActorID: "https://origin.example/users/me", KeyID: "https://origin.example/users/me#ed25519-key", PrivateKey: priv}
	activity := json.RawMessage(`{"id":"https://origin.example/activities/2","type":"Create","actor":"https://origin.example/users/me"}`)

	job, err := BuildJob(context.Background(), activity, sender, nil, "https://origin.example", st.Activities, "https://origin.example/activities/2", time.Now())
	if err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(job.Activity, &generic); err != nil {
		t.Fatal(err)
	}
	if _, ok := generic["proof"]; !ok {
		t.Fatal("expected proof attached to unsigned activity")
	}
}

// Local recipients are persisted directly into the recipient's inbox and
// marked delivered without going through the fan-out worker.
func TestBuildJobDeliversLocalRecipientsDirectly(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	st := store.NewMemoryStore()
	sender := SenderIdentity{ActorID: "https://origin.example/users/me", KeyID: "https://origin.example/users/me#ed25519-key", PrivateKey: priv}
	raw := []RawRecipient{{ActorID: "https://origin.example/users/friend", Inbox: "https://origin.example/users/friend/inbox", IsPrimary: true}}
	activity := json.RawMessage(`{"id":"https://origin.example/activities/3","type":"Create","actor":"https://origin.example/users/me"}`)

	job, err := BuildJob(context.Background(), activity, sender, raw, "https://origin.example", st.Activities, "https://origin.example/activities/3", time.Now())
	if err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	if !job.Recipients[0].IsLocal || !job.Recipients[0].IsDelivered {
		t.Fatalf("expected local recipient delivered, got %+v", job.Recipients[0])
	}
	inbox := st.Activities.Inbox(job.Recipients[0].ActorID)
	if len(inbox) != 1 || inbox[0] != "https://origin.example/activities/3" {
		t.Fatalf("expected activity appended to local inbox, got %v", inbox)
	}
}

// S5 — outgoing backoff schedule.
func TestBackoffS5Scenario(t *testing.T) {
	cases := map[int]time.Duration{
		1: 600 * time.Second,
		2: 3300 * time.Second,
		3: 30300 * time.Second,
	}
	for n, want := range cases {
		if got := Backoff(n); got != want {
			t.Fatalf("Backoff(%d) = %v, want %v", n, got, want)
		}
	}
}

// Invariant 6: at no observable instant does the in-flight set contain two
// recipients with the same host.
func TestRunFanOutPerHostExclusion(t *testing.T) {
	job := &OutgoingActivityJob{
		Activity: json.RawMessage(`{}`),
		Recipients: []*Recipient{
			{ActorID: "1", Inbox: "https://a.example/u1/inbox", Host: "a.example"},
			{ActorID: "2", Inbox: "https://a.example/u2/inbox", Host: "a.example"},
			{ActorID: "3", Inbox: "https://b.example/u1/inbox", Host: "b.example"},
			{ActorID: "4", Inbox: "https://b.example/u2/inbox", Host: "b.example"},
			{ActorID: "5", Inbox: "https://c.example/u1/inbox", Host: "c.example"},
		},
	}

	var mu sync.Mutex
	inFlight := make(map[string]int)
	var violated int32
	release := make(chan struct{})

	deliver := func(ctx context.Context, j *OutgoingActivityJob, r *Recipient) (DeliveryOutcome, []byte, error) {
		mu.Lock()
		inFlight[r.Host]++
		if inFlight[r.Host] > 1 {
			atomic.StoreInt32(&violated, 1)
		}
		mu.Unlock()

		<-release

		mu.Lock()
		inFlight[r.Host]--
		mu.Unlock()
		return OutcomeDelivered, nil, nil
	}

	done := make(chan struct{})
	go func() {
		RunFanOut(context.Background(), job, 4, nil, deliver, nil)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	<-done

	if atomic.LoadInt32(&violated) != 0 {
		t.Fatal("per-host exclusion violated: two deliveries to the same host ran concurrently")
	}
	for _, r := range job.Recipients {
		if !r.IsDelivered {
			t.Fatalf("expected %s delivered", r.ActorID)
		}
	}
}

// A 410 Gone response marks the recipient isGone, not isUnreachable
// directly; UpdateReachability promotes isGone to isUnreachable afterward.
func TestRunFanOutGoneOutcome(t *testing.T) {
	job := &OutgoingActivityJob{
		Recipients: []*Recipient{{ActorID: "1", Inbox: "https://gone.example/u/inbox", Host: "gone.example"}},
	}
	deliver := func(ctx context.Context, j *OutgoingActivityJob, r *Recipient) (DeliveryOutcome, []byte, error) {
		return OutcomeGone, nil, nil
	}
	RunFanOut(context.Background(), job, 2, nil, deliver, nil)
	if !job.Recipients[0].IsGone {
		t.Fatal("expected isGone set")
	}
}

// UpdateReachability promotes an isGone recipient straight to
// isUnreachable; with no other non-final recipients left, the job is not
// requeued and per-actor reachability is persisted instead.
func TestUpdateReachabilityPromotesGoneToUnreachable(t *testing.T) {
	st := store.NewMemoryStore()
	st.Actors.Put(&model.Actor{ID: "https://gone.example/users/1"})
	job := &OutgoingActivityJob{
		Recipients: []*Recipient{{ActorID: "https://gone.example/users/1", Inbox: "https://gone.example/u/inbox", Host: "gone.example", IsGone: true}},
	}
	now := time.Now()
	requeueAt, err := UpdateReachability(context.Background(), job, st.Actors, 30*24*time.Hour, 3, now)
	if err != nil {
		t.Fatalf("UpdateReachability: %v", err)
	}
	if !job.Recipients[0].IsUnreachable {
		t.Fatal("expected isGone recipient promoted to isUnreachable (§4.6 retry pass)")
	}
	if !requeueAt.IsZero() {
		t.Fatal("a job with only final (now-unreachable) recipients should not be requeued")
	}
}

// A recipient that is merely undelivered (no error classified yet) and
// whose actor profile still resolves and is reachable keeps the job
// non-final, so it is requeued with the S5 backoff for the first retry.
func TestUpdateReachabilityRequeuesWithBackoff(t *testing.T) {
	st := store.NewMemoryStore()
	st.Actors.Put(&model.Actor{ID: "https://slow.example/users/1"})
	job := &OutgoingActivityJob{
		Recipients: []*Recipient{{ActorID: "https://slow.example/users/1", Inbox: "https://slow.example/u/inbox", Host: "slow.example"}},
	}
	now := time.Now()
	requeueAt, err := UpdateReachability(context.Background(), job, st.Actors, 30*24*time.Hour, 3, now)
	if err != nil {
		t.Fatalf("UpdateReachability: %v", err)
	}
	if job.Recipients[0].IsUnreachable {
		t.Fatal("a reachable, non-gone recipient should not be marked unreachable yet")
	}
	if requeueAt.IsZero() {
		t.Fatal("expected a requeue time since failureCount < retriesMax")
	}
	if job.FailureCount != 1 {
		t.Fatalf("expected failureCount incremented to 1, got %d", job.FailureCount)
	}
	wantDelta := Backoff(1)
	if got := requeueAt.Sub(now); got != wantDelta {
		t.Fatalf("requeue delta = %v, want %v", got, wantDelta)
	}
}
