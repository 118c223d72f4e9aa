// Package costledger provides an embeddable cost ledger for Go applications.
//
// Costledger is designed as a library, not a service. Import it directly
// into your Go application to track money owed, received, and paid out
// across folder-scoped cost records. It provides:
//
//   - Append-only transaction logs per cost record
//   - Aggregates (received, paid, balance) maintained atomically with
//     every transaction write
//   - Optimistic concurrency for transaction edits and deletions
//   - Folder workspaces ordered by most recent access
//   - Filtering, due-date windows, and summary reporting
//   - Pluggable storage (in-memory and MongoDB built-in)
//   - Lifecycle hooks via plugins
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/costledger"
//	    "github.com/xraph/costledger/store/mongo"
//	)
//
//	// Initialize store
//	store, err := mongo.Connect(mongoURI, "costledger")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create ledger
//	l := costledger.New(store)
//
//	// Start the ledger (runs store migrations)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Folders are named workspaces. Each folder holds cost records; deleting a
// folder removes everything inside it.
//
// Records describe a single financial arrangement: a reason, a total
// amount, a debit or credit direction, and a category. A record's
// aggregates are never written directly; they are derived from its
// transactions.
//
// Transactions are the append-only money movements under a record. Every
// transaction write updates the record's aggregates in the same atomic
// operation, so the stored aggregates always equal a fold over the stored
// transactions:
//
//	txn, err := l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
//	    Amount: costledger.USD(250_00),
//	    Type:   record.TxnReceived,
//	})
//
// The report package filters and summarizes records without touching the
// store:
//
//	due := report.Apply(records, report.Filter{Window: report.ThisWeek(time.Now())})
//	totals := report.ComputeTotals(records)
package costledger
