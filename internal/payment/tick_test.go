package payment

import (
	"context"
	"testing"
	"time"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/logging"
	"github.com/fedcore/federation/internal/model"
	"github.com/fedcore/federation/internal/store"
)

// fakeWallet lets each test phase control the wallet RPC surface
// independently without a real monero-wallet-rpc.
type fakeWallet struct {
	transfers       map[uint64][]store.WalletTransfer
	unlockedBalance map[uint64]uint64
	lockedBalance   map[uint64]uint64
	sendErr         error
	sendTxID        string
	txStatus        map[string]store.WalletTxStatus
}

func (w *fakeWallet) IncomingTransfers(ctx context.Context, indices []uint64) ([]store.WalletTransfer, error) {
	var out []store.WalletTransfer
	for _, idx := range indices {
		out = append(out, w.transfers[idx]...)
	}
	return out, nil
}

func (w *fakeWallet) SubaddressBalance(ctx context.Context, index uint64) (uint64, uint64, error) {
	return w.unlockedBalance[index], w.lockedBalance[index], nil
}

func (w *fakeWallet) Send(ctx context.Context, toAddress string, amount uint64) (string, error) {
	if w.sendErr != nil {
		return "", w.sendErr
	}
	return w.sendTxID, nil
}

func (w *fakeWallet) GetTx(ctx context.Context, txID string) (store.WalletTxStatus, error) {
	return w.txStatus[txID], nil
}

func recipientActor(id, payoutAddress string, price uint64) *model.Actor {
	return &model.Actor{
		ID: id,
		Attachments: []model.ActorAttachment{
			{PaymentOption: &model.PaymentOption{
				Kind:          model.PaymentMoneroSubscription,
				Price:         price,
				PayoutAddress: payoutAddress,
			}},
		},
	}
}

// S6 — Monero invoice lifecycle: Open -> (timeout, no payment) Timeout ->
// (late payment) Paid -> (balance unlocks, payout sent) Forwarded -> (3
// confirmations) Completed, with the subscription extended by amount/price
// seconds.
func TestTickS6Lifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	inv := &model.Invoice{
		ID:              "inv1",
		Sender:          "https://a.example/users/alice",
		Recipient:       "https://b.example/users/bob",
		ChainID:         0,
		Amount:          36000,
		Status:          model.InvoiceOpen,
		SubaddressIndex: 1,
		CreatedAt:       now.Add(-4 * time.Hour),
	}
	st.Invoices.Put(inv)
	st.Actors.Put(recipientActor(inv.Recipient, "payout-address", 10))

	wallet := &fakeWallet{
		transfers:       map[uint64][]store.WalletTransfer{},
		unlockedBalance: map[uint64]uint64{},
		lockedBalance:   map[uint64]uint64{},
		txStatus:        map[string]store.WalletTxStatus{},
	}
	tick := &Tick{
		Invoices:      st.Invoices,
		Actors:        st.Actors,
		Subscriptions: st.Subscriptions,
		Wallet:        wallet,
		Log:           logging.Discard(),
	}

	// Tick 1: aged past MONERO_INVOICE_TIMEOUT with no payment -> Timeout.
	tick.Run(context.Background(), now)
	got, err := st.Invoices.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.InvoiceTimeout {
		t.Fatalf("expected Timeout after 3h with no payment, got %s", got.Status)
	}

	// Tick 2: a late transfer is observed against the invoice's
	// subaddress; the reopen audit advances Timeout -> Paid.
	wallet.transfers[1] = []store.WalletTransfer{{SubaddrIndex: 1, Amount: 36000, TxID: "tx-in"}}
	tick.Run(context.Background(), now)
	got, _ = st.Invoices.GetByID(context.Background(), inv.ID)
	if got.Status != model.InvoicePaid {
		t.Fatalf("expected Paid after late payment, got %s", got.Status)
	}

	// Tick 3: balance still locked -> no forward yet.
	wallet.lockedBalance[1] = 36000
	tick.Run(context.Background(), now)
	got, _ = st.Invoices.GetByID(context.Background(), inv.ID)
	if got.Status != model.InvoicePaid {
		t.Fatalf("expected still Paid while balance locked, got %s", got.Status)
	}

	// Tick 4: balance unlocks -> payout sent -> Forwarded.
	wallet.lockedBalance[1] = 0
	wallet.unlockedBalance[1] = 36000
	wallet.sendTxID = "payout-tx"
	tick.Run(context.Background(), now)
	got, _ = st.Invoices.GetByID(context.Background(), inv.ID)
	if got.Status != model.InvoiceForwarded {
		t.Fatalf("expected Forwarded after payout send, got %s", got.Status)
	}
	if got.PayoutTxID != "payout-tx" {
		t.Fatalf("expected payoutTxId recorded, got %q", got.PayoutTxID)
	}

	// Tick 5: payout has only 1 confirmation -> stays Forwarded.
	wallet.txStatus["payout-tx"] = store.WalletTxStatus{Confirmations: 1, InPool: true}
	tick.Run(context.Background(), now)
	got, _ = st.Invoices.GetByID(context.Background(), inv.ID)
	if got.Status != model.InvoiceForwarded {
		t.Fatalf("expected still Forwarded with 1 confirmation, got %s", got.Status)
	}

	// Tick 6: 3 confirmations -> Completed, subscription extended by
	// amount/price = 36000/10 = 3600 seconds.
	wallet.txStatus["payout-tx"] = store.WalletTxStatus{Confirmations: 3}
	tick.Run(context.Background(), now)
	got, _ = st.Invoices.GetByID(context.Background(), inv.ID)
	if got.Status != model.InvoiceCompleted {
		t.Fatalf("expected Completed after 3 confirmations, got %s", got.Status)
	}

	sub, ok := st.Subscriptions.Get(inv.Sender, inv.Recipient)
	if !ok {
		t.Fatal("expected subscription created")
	}
	wantDuration := 36000 * time.Second / 10
	gotDuration := sub.ExpiresAt.Sub(sub.UpdatedAt)
	if gotDuration < wantDuration-time.Second || gotDuration > wantDuration+time.Second {
		t.Fatalf("expected expiresAt extended by ~%s, got delta %s", wantDuration, gotDuration)
	}
}

// A Dust send error advances Paid -> Underpaid instead of Forwarded.
func TestTickForwardPaidDustAdvancesToUnderpaid(t *testing.T) {
	st := store.NewMemoryStore()
	inv := &model.Invoice{
		ID:              "inv2",
		Sender:          "https://a.example/users/alice",
		Recipient:       "https://b.example/users/bob",
		Amount:          100,
		Status:          model.InvoicePaid,
		SubaddressIndex: 2,
	}
	st.Invoices.Put(inv)
	st.Actors.Put(recipientActor(inv.Recipient, "payout-address", 10))

	wallet := &fakeWallet{
		unlockedBalance: map[uint64]uint64{2: 100},
		lockedBalance:   map[uint64]uint64{},
		sendErr:         aperrors.New(aperrors.KindPayment, aperrors.CodeDust, "amount below dust threshold"),
	}
	tick := &Tick{Invoices: st.Invoices, Actors: st.Actors, Subscriptions: st.Subscriptions, Wallet: wallet, Log: logging.Discard()}
	tick.forwardPaid(context.Background())

	got, _ := st.Invoices.GetByID(context.Background(), inv.ID)
	if got.Status != model.InvoiceUnderpaid {
		t.Fatalf("expected Underpaid on dust send error, got %s", got.Status)
	}
}

// A failed payout transaction advances Forwarded -> Failed.
func TestTickConfirmForwardedFailedTx(t *testing.T) {
	st := store.NewMemoryStore()
	inv := &model.Invoice{
		ID:         "inv3",
		Status:     model.InvoiceForwarded,
		PayoutTxID: "bad-tx",
	}
	st.Invoices.Put(inv)

	wallet := &fakeWallet{txStatus: map[string]store.WalletTxStatus{"bad-tx": {Failed: true}}}
	tick := &Tick{Invoices: st.Invoices, Actors: st.Actors, Subscriptions: st.Subscriptions, Wallet: wallet, Log: logging.Discard()}
	tick.confirmForwarded(context.Background())

	got, _ := st.Invoices.GetByID(context.Background(), inv.ID)
	if got.Status != model.InvoiceFailed {
		t.Fatalf("expected Failed after failed payout tx, got %s", got.Status)
	}
}
