package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/fedcore/federation/internal/aperrors"
)

// MemoryWallet is a fake WalletClient for payment package tests: transfers
// and payout confirmations are seeded directly rather than observed from a
// real monero-wallet-rpc.
type MemoryWallet struct {
	mu sync.Mutex

	transfers map[uint64][]WalletTransfer
	unlocked  map[uint64]uint64
	locked    map[uint64]uint64
	sent      map[string]uint64 // txID -> amount
	txStatus  map[string]WalletTxStatus
	nextTxID  int
}

func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{
		transfers: make(map[uint64][]WalletTransfer),
		unlocked:  make(map[uint64]uint64),
		locked:    make(map[uint64]uint64),
		sent:      make(map[string]uint64),
		txStatus:  make(map[string]WalletTxStatus),
	}
}

func (w *MemoryWallet) SeedTransfer(subaddrIndex, amount uint64, txID string, confirmations uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transfers[subaddrIndex] = append(w.transfers[subaddrIndex], WalletTransfer{
		SubaddrIndex:  subaddrIndex,
		Amount:        amount,
		TxID:          txID,
		Confirmations: confirmations,
	})
}

func (w *MemoryWallet) SeedBalance(index uint64, unlocked, locked uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unlocked[index] = unlocked
	w.locked[index] = locked
}

func (w *MemoryWallet) SeedTxConfirmations(txID string, status WalletTxStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.txStatus[txID] = status
}

func (w *MemoryWallet) IncomingTransfers(ctx context.Context, subaddrIndices []uint64) ([]WalletTransfer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []WalletTransfer
	for _, idx := range subaddrIndices {
		out = append(out, w.transfers[idx]...)
	}
	return out, nil
}

func (w *MemoryWallet) SubaddressBalance(ctx context.Context, index uint64) (unlocked uint64, locked uint64, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unlocked[index], w.locked[index], nil
}

func (w *MemoryWallet) Send(ctx context.Context, toAddress string, amount uint64) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount == 0 {
		return "", aperrors.New(aperrors.KindPayment, aperrors.CodeDust, "zero amount payout")
	}
	w.nextTxID++
	prefixLen := len(toAddress)
	if prefixLen > 8 {
		prefixLen = 8
	}
	txID := toAddress[:prefixLen] + "-tx" + strconv.Itoa(w.nextTxID)
	w.sent[txID] = amount
	w.txStatus[txID] = WalletTxStatus{}
	return txID, nil
}

func (w *MemoryWallet) GetTx(ctx context.Context, txID string) (WalletTxStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	status, ok := w.txStatus[txID]
	if !ok {
		return WalletTxStatus{}, aperrors.New(aperrors.KindDatabase, aperrors.CodeNotFound, txID)
	}
	return status, nil
}

