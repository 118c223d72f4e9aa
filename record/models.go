// Package record defines ledger records and their transaction logs.
//
// A record is one line item of expected or realized money movement. Its
// aggregate fields (TotalReceived, TotalPaid, CurrentBalance) are never
// independent state: they must always equal a fold over the record's
// transaction set. Every operation that changes the transaction set carries
// the exact delta implied by that change, and the store applies the delta in
// the same atomic write that lands the transaction.
package record

import (
	"fmt"
	"time"

	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/types"
)

// Category classifies a record for chart grouping.
type Category string

const (
	CategoryProject Category = "project"
	CategoryOther   Category = "other"
)

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryProject, CategoryOther:
		return Category(s), nil
	default:
		return "", fmt.Errorf("record: unknown category %q", s)
	}
}

// Type classifies a record for top-level profit/loss reporting, independent
// of individual transaction direction: debit records sum into investment,
// credit records into earning.
type Type string

const (
	TypeDebit  Type = "debit"
	TypeCredit Type = "credit"
)

// ParseType validates a record type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeDebit, TypeCredit:
		return Type(s), nil
	default:
		return "", fmt.Errorf("record: unknown record type %q", s)
	}
}

// TxnType is the direction of a single transaction.
type TxnType string

const (
	TxnReceived TxnType = "received"
	TxnPaid     TxnType = "paid"
)

// ParseTxnType validates a transaction type string.
func ParseTxnType(s string) (TxnType, error) {
	switch TxnType(s) {
	case TxnReceived, TxnPaid:
		return TxnType(s), nil
	default:
		return "", fmt.Errorf("record: unknown transaction type %q", s)
	}
}

// Transaction is one atomic money movement against a record. Transactions
// are append-only; an edit rewrites the transaction and re-derives the
// record aggregates in the same write.
type Transaction struct {
	ID          id.TransactionID `json:"id"`
	Date        time.Time        `json:"date"`
	Amount      types.Money      `json:"amount"` // strictly positive
	Type        TxnType          `json:"type"`
	Description string           `json:"description,omitempty"`
	Employee    string           `json:"employee,omitempty"` // used when Type is paid
	// BalanceAfter is the record's balance immediately after this
	// transaction was applied. Denormalized audit value; the fold over the
	// transaction set remains the source of truth.
	BalanceAfter types.Money `json:"balance_after"`
}

// Contribution returns the transaction's delta to the record aggregates.
func (t *Transaction) Contribution() Delta {
	zero := types.Zero(t.Amount.Currency)
	switch t.Type {
	case TxnReceived:
		return Delta{Received: t.Amount, Paid: zero}
	case TxnPaid:
		return Delta{Received: zero, Paid: t.Amount}
	default:
		return Delta{Received: zero, Paid: zero}
	}
}

// Snapshot captures the delta-relevant fields of a transaction as a caller
// read them. Edit and delete operations pass the snapshot back to the store
// as an optimistic guard: if the stored transaction no longer matches, the
// caller's delta was computed against stale state and the write is rejected
// with ErrConcurrentModification.
type Snapshot struct {
	Amount types.Money
	Type   TxnType
}

// Snapshot returns the transaction's current guard snapshot.
func (t *Transaction) Snapshot() Snapshot {
	return Snapshot{Amount: t.Amount, Type: t.Type}
}

// Contribution returns the snapshotted delta.
func (s Snapshot) Contribution() Delta {
	return (&Transaction{Amount: s.Amount, Type: s.Type}).Contribution()
}

// Delta is an additive change to a record's aggregate fields. Deltas are
// commutative and associative, so concurrent deltas compose correctly
// regardless of interleaving when the store applies them as increments.
type Delta struct {
	Received types.Money
	Paid     types.Money
}

// Sub returns d minus other, the net delta of replacing one contribution
// with another.
func (d Delta) Sub(other Delta) Delta {
	return Delta{
		Received: d.Received.Subtract(other.Received),
		Paid:     d.Paid.Subtract(other.Paid),
	}
}

// Negate returns the inverse delta, used when removing a transaction.
func (d Delta) Negate() Delta {
	return Delta{Received: d.Received.Negate(), Paid: d.Paid.Negate()}
}

// Balance returns the delta's effect on the running balance.
func (d Delta) Balance() types.Money {
	return d.Received.Subtract(d.Paid)
}

// Metadata holds the directly editable, non-derived record fields. Updating
// metadata never touches the aggregate fields, which are owned exclusively
// by the transaction-mutating operations.
type Metadata struct {
	Reason      string      `json:"reason"`
	TotalAmount types.Money `json:"total_amount"`
	Category    Category    `json:"category"`
	Type        Type        `json:"type"`
	Description string      `json:"description,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
}

// Record is one ledger line item with a contracted total and a log of
// transactions. Transactions are held as a map keyed by transaction id,
// the single canonical representation at the storage boundary.
type Record struct {
	types.Entity
	ID       id.RecordID `json:"id"`
	FolderID id.FolderID `json:"folder_id"`

	Reason      string      `json:"reason"`
	TotalAmount types.Money `json:"total_amount"` // contracted/expected amount
	Category    Category    `json:"category"`
	Type        Type        `json:"type"`
	Description string      `json:"description,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`

	// Aggregate fields. Derived from Transactions; updated only by delta in
	// the same atomic write as the transaction change they reflect.
	TotalReceived  types.Money `json:"total_received"`
	TotalPaid      types.Money `json:"total_paid"`
	CurrentBalance types.Money `json:"current_balance"`

	Transactions map[string]*Transaction `json:"transactions,omitempty"`
}

// AmountRemaining is TotalAmount minus TotalReceived, recomputed on every
// read rather than stored redundantly.
func (r *Record) AmountRemaining() types.Money {
	return r.TotalAmount.Subtract(r.TotalReceived)
}

// Transaction returns the transaction with the given id, or nil.
func (r *Record) Transaction(txnID id.TransactionID) *Transaction {
	if r.Transactions == nil {
		return nil
	}
	return r.Transactions[txnID.String()]
}

// Currency returns the record's operating currency.
func (r *Record) Currency() string { return r.TotalAmount.Currency }

// Apply folds a delta into the aggregate fields. Callers outside the store
// drivers should not use this directly; it exists so drivers share one
// arithmetic path.
func (r *Record) Apply(d Delta) {
	r.TotalReceived = r.TotalReceived.Add(d.Received)
	r.TotalPaid = r.TotalPaid.Add(d.Paid)
	r.CurrentBalance = r.TotalReceived.Subtract(r.TotalPaid)
}

// Refold recomputes the aggregate fields from scratch by summing the full
// transaction set. This is the ground truth the incremental deltas must
// stay equivalent to; it backs the reconciliation repair pass and the
// property tests.
func (r *Record) Refold() (received, paid, balance types.Money) {
	cur := r.Currency()
	received, paid = types.Zero(cur), types.Zero(cur)
	for _, t := range r.Transactions {
		switch t.Type {
		case TxnReceived:
			received = received.Add(t.Amount)
		case TxnPaid:
			paid = paid.Add(t.Amount)
		}
	}
	return received, paid, received.Subtract(paid)
}

// Consistent reports whether the stored aggregates equal a full refold.
func (r *Record) Consistent() bool {
	received, paid, balance := r.Refold()
	return r.TotalReceived.Equal(received) &&
		r.TotalPaid.Equal(paid) &&
		r.CurrentBalance.Equal(balance)
}
