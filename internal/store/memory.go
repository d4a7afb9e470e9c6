package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/ids"
	"github.com/fedcore/federation/internal/model"
)

// memoryData is the shared state behind the in-process fakes below. Each
// fake (MemoryActors, MemoryPosts, ...) implements exactly one store
// interface so method names never collide (GetByID means something
// different for each entity), but they all share one underlying instance
// when constructed via NewMemoryStore, so a test can wire ingress/egress/
// payment against a single coherent fixture.
type memoryData struct {
	mu sync.Mutex

	actors       map[string]*model.Actor
	posts        map[string]*model.Post
	localPostIDs map[string]bool
	activities   map[string]json.RawMessage
	inboxes      map[string][]string
	invoices     map[string]*model.Invoice
	subscriptions map[string]*model.Subscription
}

func newMemoryData() *memoryData {
	return &memoryData{
		actors:        make(map[string]*model.Actor),
		posts:         make(map[string]*model.Post),
		localPostIDs:  make(map[string]bool),
		activities:    make(map[string]json.RawMessage),
		inboxes:       make(map[string][]string),
		invoices:      make(map[string]*model.Invoice),
		subscriptions: make(map[string]*model.Subscription),
	}
}

// MemoryStore bundles one fake per store interface over shared state.
type MemoryStore struct {
	data          *memoryData
	Actors        *MemoryActors
	Posts         *MemoryPosts
	Activities    *MemoryActivities
	Invoices      *MemoryInvoices
	Subscriptions *MemorySubscriptions
}

func NewMemoryStore() *MemoryStore {
	d := newMemoryData()
	return &MemoryStore{
		data:          d,
		Actors:        &MemoryActors{d},
		Posts:         &MemoryPosts{d},
		Activities:    &MemoryActivities{d},
		Invoices:      &MemoryInvoices{d},
		Subscriptions: &MemorySubscriptions{d},
	}
}

type MemoryActors struct{ d *memoryData }

func (m *MemoryActors) Put(a *model.Actor) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	m.d.actors[a.ID] = a
}

func (m *MemoryActors) GetByID(ctx context.Context, id string) (*model.Actor, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	a, ok := m.d.actors[id]
	if !ok {
		return nil, aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, id)
	}
	return a, nil
}

func (m *MemoryActors) GetByAddress(ctx context.Context, addr ids.ActorAddress) (*model.Actor, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	for _, a := range m.d.actors {
		if a.PreferredUsername == addr.User {
			return a, nil
		}
	}
	return nil, aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, addr.String())
}

func (m *MemoryActors) SetUnreachableSince(ctx context.Context, actorID string, since *time.Time) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	a, ok := m.d.actors[actorID]
	if !ok {
		return aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, actorID)
	}
	a.UnreachableSince = since
	return nil
}

type MemoryPosts struct{ d *memoryData }

func (m *MemoryPosts) PutLocal(p *model.Post) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	m.d.posts[p.ID] = p
	m.d.localPostIDs[p.ID] = true
}

func (m *MemoryPosts) PutRemote(p *model.Post) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	m.d.posts[p.ID] = p
}

func (m *MemoryPosts) GetByID(ctx context.Context, id string) (*model.Post, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	p, ok := m.d.posts[id]
	if !ok {
		return nil, aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, id)
	}
	return p, nil
}

func (m *MemoryPosts) IsLocal(ctx context.Context, id string) bool {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	return m.d.localPostIDs[id]
}

func (m *MemoryPosts) InsertThread(ctx context.Context, posts []*model.Post) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	for _, p := range posts {
		m.d.posts[p.ID] = p
	}
	return nil
}

func (m *MemoryPosts) Count() int {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	return len(m.d.posts)
}

type MemoryActivities struct{ d *memoryData }

func (m *MemoryActivities) Insert(ctx context.Context, canonicalID string, activity json.RawMessage) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if _, exists := m.d.activities[canonicalID]; exists {
		return aperrors.New(aperrors.KindDatabase, aperrors.CodeAlreadyExists, canonicalID)
	}
	m.d.activities[canonicalID] = activity
	return nil
}

func (m *MemoryActivities) AppendToInbox(ctx context.Context, actorID, activityID string) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	m.d.inboxes[actorID] = append(m.d.inboxes[actorID], activityID)
	return nil
}

func (m *MemoryActivities) Inbox(actorID string) []string {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	return append([]string(nil), m.d.inboxes[actorID]...)
}

type MemoryInvoices struct{ d *memoryData }

func (m *MemoryInvoices) Put(inv *model.Invoice) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	m.d.invoices[inv.ID] = inv
}

func (m *MemoryInvoices) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	inv, ok := m.d.invoices[id]
	if !ok {
		return nil, aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, id)
	}
	return inv, nil
}

func (m *MemoryInvoices) GetOpen(ctx context.Context) ([]*model.Invoice, error) {
	return m.GetByStatus(ctx, model.InvoiceOpen)
}

func (m *MemoryInvoices) GetByStatus(ctx context.Context, status model.InvoiceStatus) ([]*model.Invoice, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range m.d.invoices {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *MemoryInvoices) GetBySubaddressIndex(ctx context.Context, index uint64) (*model.Invoice, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	for _, inv := range m.d.invoices {
		if inv.SubaddressIndex == index {
			return inv, nil
		}
	}
	return nil, aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, "subaddress")
}

func (m *MemoryInvoices) Transition(ctx context.Context, id string, to model.InvoiceStatus, mutate func(*model.Invoice)) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	inv, ok := m.d.invoices[id]
	if !ok {
		return aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, id)
	}
	if !model.CanChangeStatus(inv.Status, to) {
		return aperrors.New(aperrors.KindDatabase, aperrors.CodeTypeError, "illegal invoice transition")
	}
	inv.Status = to
	inv.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(inv)
	}
	return nil
}

type MemorySubscriptions struct{ d *memoryData }

func (m *MemorySubscriptions) UpsertExtend(ctx context.Context, sender, recipient string, chainID int64, extend time.Duration) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	key := sender + "|" + recipient
	now := time.Now()
	sub, ok := m.d.subscriptions[key]
	if !ok {
		sub = &model.Subscription{Sender: sender, Recipient: recipient, ChainID: chainID, ExpiresAt: now}
		m.d.subscriptions[key] = sub
	}
	base := now
	if sub.ExpiresAt.After(now) {
		base = sub.ExpiresAt
	}
	sub.ExpiresAt = base.Add(extend)
	sub.UpdatedAt = now
	return nil
}

func (m *MemorySubscriptions) Get(sender, recipient string) (*model.Subscription, bool) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	sub, ok := m.d.subscriptions[sender+"|"+recipient]
	return sub, ok
}

// AllowAllFilter is a FederationFilter that rejects nothing, for tests.
type AllowAllFilter struct{}

func (AllowAllFilter) IsRejected(host string) bool { return false }

// RejectListFilter rejects hosts present in the set.
type RejectListFilter map[string]bool

func (f RejectListFilter) IsRejected(host string) bool { return f[host] }
