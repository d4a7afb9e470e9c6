// Package store defines the external collaborator contracts of spec.md §6:
// narrow Go interfaces for the database, the federation filter list, and the
// Monero wallet RPC client. Nothing here talks to a real Postgres or
// monero-wallet-rpc; the core compiles and unit-tests against these
// interfaces alone, following the teacher's `core.LedgerConfig`/pluggable
// backend pattern (core/ledger.go, core/wallet.go) of depending on an
// interface rather than a concrete driver.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fedcore/federation/internal/ids"
	"github.com/fedcore/federation/internal/model"
)

// Actors is the actor persistence contract (§6.6).
type Actors interface {
	GetByID(ctx context.Context, id string) (*model.Actor, error)
	GetByAddress(ctx context.Context, addr ids.ActorAddress) (*model.Actor, error)
	SetUnreachableSince(ctx context.Context, actorID string, since *time.Time) error
}

// Posts is the post/thread persistence contract (§6.6, §4.4).
type Posts interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	IsLocal(ctx context.Context, id string) bool
	InsertThread(ctx context.Context, posts []*model.Post) error
}

// Activities is the activity persistence contract (§6.6): rows keyed by
// canonical id, recipient inboxes addressed as collections of activity ids.
type Activities interface {
	Insert(ctx context.Context, canonicalID string, activity json.RawMessage) error
	AppendToInbox(ctx context.Context, actorID, activityID string) error
}

// Invoices is the invoice persistence contract (§6.6, §3.5).
type Invoices interface {
	GetByID(ctx context.Context, id string) (*model.Invoice, error)
	GetOpen(ctx context.Context) ([]*model.Invoice, error)
	GetByStatus(ctx context.Context, status model.InvoiceStatus) ([]*model.Invoice, error)
	GetBySubaddressIndex(ctx context.Context, index uint64) (*model.Invoice, error)
	Transition(ctx context.Context, id string, to model.InvoiceStatus, mutate func(*model.Invoice)) error
}

// Subscriptions is the subscription persistence contract (§3.5).
type Subscriptions interface {
	UpsertExtend(ctx context.Context, sender, recipient string, chainID int64, extend time.Duration) error
}

// FederationFilter is the block/reject list collaborator (§6.7, §9).
type FederationFilter interface {
	IsRejected(host string) bool
}

// WalletTransfer is one incoming transfer reported by the wallet RPC.
type WalletTransfer struct {
	SubaddrIndex uint64
	Amount       uint64
	TxID         string
	Confirmations uint64
}

// WalletTxStatus is the confirmation state of a previously sent payout.
type WalletTxStatus struct {
	Confirmations uint64
	InPool        bool
	Failed        bool
}

// WalletClient is the Monero wallet RPC collaborator (§4.7, §6).
type WalletClient interface {
	IncomingTransfers(ctx context.Context, subaddrIndices []uint64) ([]WalletTransfer, error)
	SubaddressBalance(ctx context.Context, index uint64) (unlocked uint64, locked uint64, err error)
	Send(ctx context.Context, toAddress string, amount uint64) (txID string, err error)
	GetTx(ctx context.Context, txID string) (WalletTxStatus, error)
}
