package record

import (
	"context"

	"github.com/xraph/costledger/id"
)

// Store is the persistence interface for records and their transactions.
//
// Every transaction-mutating method must land the transaction change and the
// implied aggregate delta in one atomic write, applied as increments over
// the store's current values, never as an absolute overwrite computed from
// a client-side read.
type Store interface {
	// Create persists a new record. If the record carries seeded
	// transactions (the create-with-initial-transaction path), record and
	// transactions land in the same write with aggregates already folded.
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, recordID id.RecordID) (*Record, error)
	List(ctx context.Context, folderID id.FolderID) ([]*Record, error)
	// UpdateMetadata rewrites only the non-derived fields; aggregates are
	// untouched.
	UpdateMetadata(ctx context.Context, recordID id.RecordID, meta Metadata) error
	Delete(ctx context.Context, recordID id.RecordID) error

	// Append adds a transaction and increments the aggregates by its
	// contribution atomically. Append is idempotent on the transaction id:
	// re-applying a transaction that already landed is a no-op, so a caller
	// may safely retry after an ambiguous failure with the same
	// pre-allocated id. The store fills in txn.BalanceAfter from the
	// post-increment balance.
	Append(ctx context.Context, recordID id.RecordID, txn *Transaction) error

	// Replace rewrites an existing transaction and shifts the aggregates by
	// the net delta between prev and txn. prev is the optimistic guard: if
	// the stored transaction no longer matches it, Replace fails with
	// ErrConcurrentModification; if the transaction is gone, with
	// ErrTransactionNotFound.
	Replace(ctx context.Context, recordID id.RecordID, txn *Transaction, prev Snapshot) error

	// Remove deletes a transaction and subtracts its contribution, under
	// the same guard semantics as Replace.
	Remove(ctx context.Context, recordID id.RecordID, txnID id.TransactionID, prev Snapshot) error

	GetTransaction(ctx context.Context, recordID id.RecordID, txnID id.TransactionID) (*Transaction, error)

	// Reconcile atomically rewrites the aggregates from a full refold of
	// the stored transaction set and returns the repaired record. It is the
	// repair pass for drift introduced outside the atomic boundary.
	Reconcile(ctx context.Context, recordID id.RecordID) (*Record, error)
}
