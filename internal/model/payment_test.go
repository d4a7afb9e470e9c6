package model

import (
	"testing"
	"time"
)

func TestCanChangeStatusLegalGraph(t *testing.T) {
	cases := []struct {
		from, to InvoiceStatus
		want     bool
	}{
		{InvoiceOpen, InvoicePaid, true},
		{InvoiceOpen, InvoiceTimeout, true},
		{InvoiceOpen, InvoiceCancelled, true},
		{InvoiceOpen, InvoiceForwarded, false},
		{InvoicePaid, InvoiceUnderpaid, true},
		{InvoicePaid, InvoiceForwarded, true},
		{InvoicePaid, InvoiceOpen, false},
		{InvoiceForwarded, InvoiceCompleted, true},
		{InvoiceForwarded, InvoiceFailed, true},
		{InvoiceForwarded, InvoiceOpen, false},
		{InvoiceTimeout, InvoicePaid, true},
		{InvoiceCancelled, InvoicePaid, true},
		{InvoiceUnderpaid, InvoicePaid, true},
		{InvoiceCompleted, InvoicePaid, true},
		{InvoiceFailed, InvoicePaid, true},
		{InvoiceCompleted, InvoiceForwarded, false},
	}
	for _, c := range cases {
		if got := CanChangeStatus(c.from, c.to); got != c.want {
			t.Errorf("CanChangeStatus(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanReopenToPaidRequiresNoPayout(t *testing.T) {
	inv := &Invoice{Status: InvoiceCompleted}
	if !inv.CanReopenToPaid() {
		t.Fatal("expected reopen allowed with no payoutTxId")
	}
	inv.PayoutTxID = "txid123"
	if inv.CanReopenToPaid() {
		t.Fatal("expected reopen denied once payoutTxId is set")
	}
	inv.Status = InvoiceOpen
	inv.PayoutTxID = ""
	if inv.CanReopenToPaid() {
		t.Fatal("expected reopen denied for non-terminal status")
	}
}

func TestExtendSubscription(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// no existing expiry: base is now.
	got := ExtendSubscription(nil, 100, 10, now)
	want := now.Add(10 * time.Second)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// existing expiry in the future: base is the existing expiry.
	existing := now.Add(1 * time.Hour)
	got = ExtendSubscription(&existing, 100, 10, now)
	want = existing.Add(10 * time.Second)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// existing expiry already passed: base is now, not the stale expiry.
	past := now.Add(-1 * time.Hour)
	got = ExtendSubscription(&past, 100, 10, now)
	want = now.Add(10 * time.Second)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
