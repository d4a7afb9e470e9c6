package model

import "time"

// InvoiceStatus is the legal state graph of §3.5.
type InvoiceStatus string

const (
	InvoiceOpen       InvoiceStatus = "Open"
	InvoicePaid       InvoiceStatus = "Paid"
	InvoiceForwarded  InvoiceStatus = "Forwarded"
	InvoiceCompleted  InvoiceStatus = "Completed"
	InvoiceTimeout    InvoiceStatus = "Timeout"
	InvoiceCancelled  InvoiceStatus = "Cancelled"
	InvoiceUnderpaid  InvoiceStatus = "Underpaid"
	InvoiceFailed     InvoiceStatus = "Failed"
)

// Invoice is the payment record of §3.5.
type Invoice struct {
	ID            string        `json:"id"`
	Sender        string        `json:"sender"`
	Recipient     string        `json:"recipient"`
	ChainID       int64         `json:"chainId"`
	Amount        uint64        `json:"amount"` // atomic units
	Status        InvoiceStatus `json:"status"`
	PaymentAddress string       `json:"paymentAddress,omitempty"`
	SubaddressIndex uint64      `json:"subaddressIndex,omitempty"`
	PayoutTxID    string        `json:"payoutTxId,omitempty"`
	ObjectID      string        `json:"objectId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// validTransitions encodes the legal state graph of spec.md §3.5 exactly.
var validTransitions = map[InvoiceStatus]map[InvoiceStatus]bool{
	InvoiceOpen: {
		InvoicePaid:      true,
		InvoiceTimeout:   true,
		InvoiceCancelled: true,
	},
	InvoicePaid: {
		InvoiceUnderpaid: true, // no payoutTxId
		InvoiceForwarded: true, // payoutTxId set
	},
	InvoiceForwarded: {
		InvoiceCompleted: true,
		InvoiceFailed:    true,
	},
	InvoiceTimeout: {
		InvoicePaid: true, // late payment observed
	},
	InvoiceCancelled: {
		InvoicePaid: true,
	},
	InvoiceUnderpaid: {
		InvoicePaid: true,
	},
	InvoiceCompleted: {
		InvoicePaid: true, // reopen only if payoutTxId absent
	},
	InvoiceFailed: {
		InvoicePaid: true, // reopen only if payoutTxId absent
	},
}

// CanChangeStatus implements testable property 8 of spec.md §8: reports
// whether the transition s -> t appears in the legal state graph. The
// Paid->Underpaid vs Paid->Forwarded split and the Completed/Failed reopen
// guard (payoutTxId must be absent) are additional invariants the caller
// must also check against the invoice's PayoutTxID field; CanChangeStatus
// alone decides graph membership.
func CanChangeStatus(s, t InvoiceStatus) bool {
	return validTransitions[s][t]
}

// CanReopenToPaid reports whether a Completed/Failed invoice may reopen to
// Paid: only when it has no payoutTxId recorded (§3.5).
func (inv *Invoice) CanReopenToPaid() bool {
	if inv.Status != InvoiceCompleted && inv.Status != InvoiceFailed {
		return false
	}
	return inv.PayoutTxID == ""
}

// Subscription is the (sender, recipient, chainId, expiresAt) record of
// §3.5.
type Subscription struct {
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	ChainID   int64     `json:"chainId"`
	ExpiresAt time.Time `json:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExtendSubscription implements §3.5's expiresAt update rule:
// expiresAt is extended by amount/price seconds starting from
// max(expiresAt, now).
func ExtendSubscription(existing *time.Time, amount, price uint64, now time.Time) time.Time {
	base := now
	if existing != nil && existing.After(now) {
		base = *existing
	}
	if price == 0 {
		return base
	}
	seconds := amount / price
	return base.Add(time.Duration(seconds) * time.Second)
}
