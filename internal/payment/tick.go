// Package payment implements the Monero invoice/subscription state machine
// of spec.md §4.7: a periodic tick that holds a database client and a
// wallet RPC client, advancing invoices through Open -> Paid -> Forwarded ->
// Completed (or their Timeout/Underpaid/Failed branches) and extending
// subscriptions on completion. Grounded on the teacher's tick-driven
// reconciliation style in core/fault_tolerance.go's HealthChecker, adapted
// from a peer health sweep to an invoice sweep.
package payment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/model"
	"github.com/fedcore/federation/internal/store"
)

// Timing and confirmation constants from spec.md §4.7.
const (
	InvoiceTimeout    = 3 * time.Hour
	ConfirmationsSafe = 3
)

// reopenableStatuses are the final invoice statuses the closed-invoice
// audit scans for a late observed payment (§4.7 "Reopen semantics").
var reopenableStatuses = []model.InvoiceStatus{
	model.InvoiceTimeout,
	model.InvoiceCancelled,
	model.InvoiceUnderpaid,
	model.InvoiceCompleted,
	model.InvoiceFailed,
}

// Tick owns one wallet-poll pass over invoices and subscriptions. Each
// invoice is touched by at most one tick instance at a time (§5
// "Ordering guarantees").
type Tick struct {
	Invoices      store.Invoices
	Actors        store.Actors
	Subscriptions store.Subscriptions
	Wallet        store.WalletClient
	Log           *logrus.Entry
}

// Run executes phases A-D in order, then the closed-invoice reopen audit.
// now is threaded through rather than read from the clock so ticks are
// deterministic to test.
func (t *Tick) Run(ctx context.Context, now time.Time) {
	t.pollOpen(ctx, now)
	t.forwardPaid(ctx)
	t.confirmForwarded(ctx)
	t.auditReopen(ctx)
}

// pollOpen is phase A: ages out stale Open invoices, then batch-queries
// incoming transfers for the rest and advances matches to Paid.
func (t *Tick) pollOpen(ctx context.Context, now time.Time) {
	open, err := t.Invoices.GetOpen(ctx)
	if err != nil {
		t.Log.WithError(err).Warn("poll open invoices")
		return
	}

	indices := make([]uint64, 0, len(open))
	for _, inv := range open {
		if now.Sub(inv.CreatedAt) >= InvoiceTimeout {
			if err := t.Invoices.Transition(ctx, inv.ID, model.InvoiceTimeout, nil); err != nil {
				t.Log.WithError(err).WithField("invoice", inv.ID).Warn("timeout transition")
			}
			continue
		}
		indices = append(indices, inv.SubaddressIndex)
	}
	if len(indices) == 0 {
		return
	}

	transfers, err := t.Wallet.IncomingTransfers(ctx, indices)
	if err != nil {
		t.Log.WithError(err).Warn("query incoming transfers")
		return
	}
	for _, tr := range transfers {
		inv, err := t.Invoices.GetBySubaddressIndex(ctx, tr.SubaddrIndex)
		if err != nil || inv.Status != model.InvoiceOpen {
			continue
		}
		if err := t.Invoices.Transition(ctx, inv.ID, model.InvoicePaid, nil); err != nil {
			t.Log.WithError(err).WithField("invoice", inv.ID).Warn("open->paid transition")
		}
	}
}

// forwardPaid is phase B: forwards the unlocked balance of each Paid
// invoice's subaddress to the recipient's configured payout address.
func (t *Tick) forwardPaid(ctx context.Context) {
	paid, err := t.Invoices.GetByStatus(ctx, model.InvoicePaid)
	if err != nil {
		t.Log.WithError(err).Warn("list paid invoices")
		return
	}

	for _, inv := range paid {
		unlocked, locked, err := t.Wallet.SubaddressBalance(ctx, inv.SubaddressIndex)
		if err != nil {
			t.Log.WithError(err).WithField("invoice", inv.ID).Warn("subaddress balance")
			continue
		}
		if locked > 0 || unlocked == 0 {
			continue
		}

		recipient, err := t.Actors.GetByID(ctx, inv.Recipient)
		if err != nil {
			t.Log.WithError(err).WithField("invoice", inv.ID).Warn("recipient lookup")
			continue
		}
		option := moneroSubscriptionOption(recipient)
		if option == nil {
			t.Log.WithField("invoice", inv.ID).Warn("recipient has no MoneroSubscription payment option")
			continue
		}

		txID, err := t.Wallet.Send(ctx, option.PayoutAddress, unlocked)
		if err != nil {
			if code, _ := aperrors.CodeOf(err); code == aperrors.CodeDust {
				if terr := t.Invoices.Transition(ctx, inv.ID, model.InvoiceUnderpaid, nil); terr != nil {
					t.Log.WithError(terr).WithField("invoice", inv.ID).Warn("paid->underpaid transition")
				}
				continue
			}
			t.Log.WithError(err).WithField("invoice", inv.ID).Warn("send payout")
			continue
		}

		if err := t.Invoices.Transition(ctx, inv.ID, model.InvoiceForwarded, func(i *model.Invoice) {
			i.PayoutTxID = txID
		}); err != nil {
			t.Log.WithError(err).WithField("invoice", inv.ID).Warn("paid->forwarded transition")
		}
	}
}

// confirmForwarded is phase C: confirms the payout transaction of each
// Forwarded invoice and advances it on success or failure.
func (t *Tick) confirmForwarded(ctx context.Context) {
	forwarded, err := t.Invoices.GetByStatus(ctx, model.InvoiceForwarded)
	if err != nil {
		t.Log.WithError(err).Warn("list forwarded invoices")
		return
	}

	for _, inv := range forwarded {
		if inv.PayoutTxID == "" {
			// Legacy invoice with no recorded payout: advance directly.
			t.completeInvoice(ctx, inv)
			continue
		}

		status, err := t.Wallet.GetTx(ctx, inv.PayoutTxID)
		if err != nil {
			t.Log.WithError(err).WithField("invoice", inv.ID).Warn("get payout tx")
			continue
		}
		if status.Failed {
			if err := t.Invoices.Transition(ctx, inv.ID, model.InvoiceFailed, nil); err != nil {
				t.Log.WithError(err).WithField("invoice", inv.ID).Warn("forwarded->failed transition")
			}
			continue
		}
		if status.Confirmations < ConfirmationsSafe {
			continue
		}
		t.completeInvoice(ctx, inv)
	}
}

// completeInvoice is phase D: advances inv to Completed and extends (or
// creates) the sender/recipient subscription by amount/price seconds.
func (t *Tick) completeInvoice(ctx context.Context, inv *model.Invoice) {
	if err := t.Invoices.Transition(ctx, inv.ID, model.InvoiceCompleted, nil); err != nil {
		t.Log.WithError(err).WithField("invoice", inv.ID).Warn("forwarded->completed transition")
		return
	}

	recipient, err := t.Actors.GetByID(ctx, inv.Recipient)
	if err != nil {
		t.Log.WithError(err).WithField("invoice", inv.ID).Warn("recipient lookup for subscription extend")
		return
	}
	option := moneroSubscriptionOption(recipient)
	if option == nil || option.Price == 0 {
		t.Log.WithField("invoice", inv.ID).Warn("no price to extend subscription")
		return
	}

	duration := time.Duration(inv.Amount/option.Price) * time.Second
	if err := t.Subscriptions.UpsertExtend(ctx, inv.Sender, inv.Recipient, inv.ChainID, duration); err != nil {
		t.Log.WithError(err).WithField("invoice", inv.ID).Warn("subscription extend")
	}
}

// auditReopen scans invoices in a final status for a late observed payment
// to their subaddress and reopens them to Paid (§4.7 "Reopen semantics").
func (t *Tick) auditReopen(ctx context.Context) {
	for _, status := range reopenableStatuses {
		invs, err := t.Invoices.GetByStatus(ctx, status)
		if err != nil {
			t.Log.WithError(err).WithField("status", status).Warn("list invoices for reopen audit")
			continue
		}
		for _, inv := range invs {
			if (status == model.InvoiceCompleted || status == model.InvoiceFailed) && !inv.CanReopenToPaid() {
				continue
			}
			transfers, err := t.Wallet.IncomingTransfers(ctx, []uint64{inv.SubaddressIndex})
			if err != nil {
				t.Log.WithError(err).WithField("invoice", inv.ID).Warn("reopen audit transfer query")
				continue
			}
			if len(transfers) == 0 {
				continue
			}
			if err := t.Invoices.Transition(ctx, inv.ID, model.InvoicePaid, nil); err != nil {
				t.Log.WithError(err).WithField("invoice", inv.ID).Warn("reopen transition")
			}
		}
	}
}

func moneroSubscriptionOption(actor *model.Actor) *model.PaymentOption {
	for _, att := range actor.Attachments {
		if att.PaymentOption != nil && att.PaymentOption.Kind == model.PaymentMoneroSubscription {
			return att.PaymentOption
		}
	}
	return nil
}
