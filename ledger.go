package costledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/costledger/folder"
	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/plugin"
	"github.com/xraph/costledger/record"
	"github.com/xraph/costledger/store"
	"github.com/xraph/costledger/types"
)

// Ledger is the main cost ledger engine. It owns the aggregation contract:
// every transaction mutation carries the exact aggregate delta it implies,
// and the store applies both in one atomic write.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Configuration
	now         func() time.Time
	readRetries uint
	editRetries int
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		now:         time.Now,
		readRetries: 3,
		editRetries: 3,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithNow sets the current-time source. Defaults to time.Now; tests inject
// a fixed clock here.
func WithNow(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithReadRetries bounds how many times a read is retried on
// ErrStoreUnavailable before the error is surfaced.
func WithReadRetries(n uint) Option {
	return func(l *Ledger) {
		l.readRetries = n
	}
}

// WithEditRetries bounds how many times an edit or delete re-reads and
// re-submits after losing an optimistic-guard race. Values below 1 are
// clamped to a single attempt.
func WithEditRetries(n int) Option {
	return func(l *Ledger) {
		if n < 1 {
			n = 1
		}
		l.editRetries = n
	}
}

// Start prepares the backing store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("costledger started",
		"read_retries", l.readRetries,
		"edit_retries", l.editRetries,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Folder Management
// ──────────────────────────────────────────────────

// CreateFolder creates a new named folder. The name is the folder's key for
// operators, so it must be non-empty and unique.
func (l *Ledger) CreateFolder(ctx context.Context, name string) (*folder.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}

	if _, err := l.store.GetFolderByName(ctx, name); err == nil {
		return nil, ErrDuplicateName
	} else if !errors.Is(err, ErrFolderNotFound) {
		return nil, err
	}

	f := &folder.Folder{
		ID:        id.NewFolderID(),
		Name:      name,
		CreatedAt: l.now().UTC(),
	}

	if err := l.store.CreateFolder(ctx, f); err != nil {
		return nil, err
	}

	l.plugins.EmitFolderCreated(ctx, f)
	l.logger.Debug("folder created", "folder_id", f.ID, "name", f.Name)
	return f, nil
}

// OpenFolder marks the folder as most recently accessed and loads its
// records into the working view.
func (l *Ledger) OpenFolder(ctx context.Context, name string) (*folder.Folder, []*record.Record, error) {
	f, err := retryRead(ctx, l.readRetries, func() (*folder.Folder, error) {
		return l.store.GetFolderByName(ctx, name)
	})
	if err != nil {
		return nil, nil, err
	}

	openedAt := l.now().UTC()
	if err := l.store.TouchFolder(ctx, f.ID, openedAt); err != nil {
		return nil, nil, err
	}
	f.LastAccessed = &openedAt

	records, err := l.ListRecords(ctx, f.ID)
	if err != nil {
		return nil, nil, err
	}

	l.plugins.EmitFolderOpened(ctx, f)
	return f, records, nil
}

// ListFolders returns all folders, most recently opened first.
func (l *Ledger) ListFolders(ctx context.Context) ([]*folder.Folder, error) {
	folders, err := retryRead(ctx, l.readRetries, func() ([]*folder.Folder, error) {
		return l.store.ListFolders(ctx)
	})
	if err != nil {
		return nil, err
	}

	folder.SortMostRecent(folders)
	return folders, nil
}

// DeleteFolder removes a folder and cascades to every record and
// transaction inside it. Callers are expected to confirm with the operator
// before invoking this.
func (l *Ledger) DeleteFolder(ctx context.Context, name string) error {
	f, err := l.store.GetFolderByName(ctx, name)
	if err != nil {
		return err
	}

	if err := l.store.DeleteFolder(ctx, f.ID); err != nil {
		return err
	}

	l.plugins.EmitFolderDeleted(ctx, f.ID.String())
	l.logger.Debug("folder deleted", "folder_id", f.ID, "name", f.Name)
	return nil
}

// ──────────────────────────────────────────────────
// Record Management
// ──────────────────────────────────────────────────

// TransactionInput carries the caller-supplied fields of a transaction.
type TransactionInput struct {
	Amount      types.Money
	Type        record.TxnType
	Description string
	Employee    string
	Date        *time.Time // defaults to the ledger clock
}

func (in *TransactionInput) validate() error {
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := record.ParseTxnType(string(in.Type)); err != nil {
		return ValidationError{Field: "type", Message: err.Error()}
	}
	return nil
}

// CreateRecordInput carries the caller-supplied fields of a new record.
type CreateRecordInput struct {
	Reason      string
	TotalAmount types.Money
	Category    record.Category
	Type        record.Type
	Description string
	DueDate     *time.Time
	// Initial, when set, is written together with the record in one atomic
	// operation, so the record never exists with implied amounts but no
	// transactions.
	Initial *TransactionInput
}

// CreateRecord creates a record, optionally seeded with its first
// transaction.
func (l *Ledger) CreateRecord(ctx context.Context, folderID id.FolderID, in CreateRecordInput) (*record.Record, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, ValidationError{Field: "reason", Message: "must not be empty"}
	}
	if _, err := record.ParseCategory(string(in.Category)); err != nil {
		return nil, ValidationError{Field: "category", Message: err.Error()}
	}
	if _, err := record.ParseType(string(in.Type)); err != nil {
		return nil, ValidationError{Field: "type", Message: err.Error()}
	}

	currency := in.TotalAmount.Currency
	r := &record.Record{
		Entity:         types.NewEntityAt(l.now()),
		ID:             id.NewRecordID(),
		FolderID:       folderID,
		Reason:         strings.TrimSpace(in.Reason),
		TotalAmount:    in.TotalAmount,
		Category:       in.Category,
		Type:           in.Type,
		Description:    in.Description,
		DueDate:        in.DueDate,
		TotalReceived:  types.Zero(currency),
		TotalPaid:      types.Zero(currency),
		CurrentBalance: types.Zero(currency),
		Transactions:   make(map[string]*record.Transaction),
	}

	if in.Initial != nil {
		if err := in.Initial.validate(); err != nil {
			return nil, err
		}
		if in.Initial.Amount.Currency != currency {
			return nil, ValidationError{Field: "initial.amount", Message: "currency must match total amount"}
		}
		txn := l.newTransaction(in.Initial)
		r.Transactions[txn.ID.String()] = txn
	}

	if err := l.store.CreateRecord(ctx, r); err != nil {
		return nil, err
	}

	l.plugins.EmitRecordCreated(ctx, r)
	l.logger.Debug("record created",
		"record_id", r.ID,
		"folder_id", folderID,
		"reason", r.Reason,
		"seeded", in.Initial != nil,
	)
	return r, nil
}

// GetRecord retrieves a record with its transactions.
func (l *Ledger) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	return retryRead(ctx, l.readRetries, func() (*record.Record, error) {
		return l.store.GetRecord(ctx, recordID)
	})
}

// ListRecords retrieves all records in a folder.
func (l *Ledger) ListRecords(ctx context.Context, folderID id.FolderID) ([]*record.Record, error) {
	return retryRead(ctx, l.readRetries, func() ([]*record.Record, error) {
		return l.store.ListRecords(ctx, folderID)
	})
}

// FindRecordByReason returns the record in the folder whose reason exactly
// matches. Callers use this to merge a new transaction into an existing
// record rather than creating a duplicate; the match is deliberately exact,
// so a misspelled reason creates a new record instead of merging.
func (l *Ledger) FindRecordByReason(ctx context.Context, folderID id.FolderID, reason string) (*record.Record, error) {
	records, err := l.ListRecords(ctx, folderID)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Reason == reason {
			return r, nil
		}
	}
	return nil, ErrRecordNotFound
}

// UpdateRecordMetadata edits the non-derived record fields. The aggregate
// fields are owned exclusively by the transaction operations and are never
// written here; a change to TotalAmount shows up in AmountRemaining on the
// next read.
func (l *Ledger) UpdateRecordMetadata(ctx context.Context, recordID id.RecordID, meta record.Metadata) (*record.Record, error) {
	if strings.TrimSpace(meta.Reason) == "" {
		return nil, ValidationError{Field: "reason", Message: "must not be empty"}
	}
	if _, err := record.ParseCategory(string(meta.Category)); err != nil {
		return nil, ValidationError{Field: "category", Message: err.Error()}
	}
	if _, err := record.ParseType(string(meta.Type)); err != nil {
		return nil, ValidationError{Field: "type", Message: err.Error()}
	}

	// The record's currency is fixed at creation. The store only persists
	// minor units, so a mismatched total would be silently reinterpreted.
	existing, err := l.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if meta.TotalAmount.Currency != existing.Currency() {
		return nil, ValidationError{Field: "total_amount", Message: "currency must match the record"}
	}

	if err := l.store.UpdateRecordMetadata(ctx, recordID, meta); err != nil {
		return nil, err
	}

	r, err := l.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	l.plugins.EmitRecordUpdated(ctx, r)
	return r, nil
}

// DeleteRecord removes a record and its transactions.
func (l *Ledger) DeleteRecord(ctx context.Context, recordID id.RecordID) error {
	if err := l.store.DeleteRecord(ctx, recordID); err != nil {
		return err
	}

	l.plugins.EmitRecordDeleted(ctx, recordID.String())
	l.logger.Debug("record deleted", "record_id", recordID)
	return nil
}

// ──────────────────────────────────────────────────
// Transaction Operations
// ──────────────────────────────────────────────────

// AppendTransaction adds a money movement to a record. The transaction and
// the implied aggregate delta land in one atomic write. The transaction id
// is allocated before the write, and the store treats a duplicate id as
// already-applied, so the append is retried on transient store failures
// without risk of double counting.
func (l *Ledger) AppendTransaction(ctx context.Context, recordID id.RecordID, in TransactionInput) (*record.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	txn := l.newTransaction(&in)

	_, err := retryRead(ctx, l.readRetries, func() (struct{}, error) {
		return struct{}{}, l.store.AppendTransaction(ctx, recordID, txn)
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitTransactionApplied(ctx, recordID.String(), txn)
	l.logger.Debug("transaction appended",
		"record_id", recordID,
		"txn_id", txn.ID,
		"type", txn.Type,
		"amount", txn.Amount.String(),
		"balance_after", txn.BalanceAfter.String(),
	)
	return txn, nil
}

// EditTransaction rewrites an existing transaction. The existing
// transaction is read first so the aggregate delta is computed from what is
// actually stored, then submitted under an optimistic guard; if another
// caller changed the transaction in between, the read-and-submit is retried
// against fresh state a bounded number of times.
func (l *Ledger) EditTransaction(ctx context.Context, recordID id.RecordID, txnID id.TransactionID, in TransactionInput) (*record.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < l.editRetries; attempt++ {
		prev, err := l.store.GetTransaction(ctx, recordID, txnID)
		if err != nil {
			return nil, err
		}

		txn := &record.Transaction{
			ID:          txnID,
			Date:        prev.Date,
			Amount:      in.Amount,
			Type:        in.Type,
			Description: in.Description,
			Employee:    in.Employee,
		}
		if in.Date != nil {
			txn.Date = in.Date.UTC()
		}

		err = l.store.ReplaceTransaction(ctx, recordID, txn, prev.Snapshot())
		if errors.Is(err, ErrConcurrentModification) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		l.plugins.EmitTransactionEdited(ctx, recordID.String(), txn)
		l.logger.Debug("transaction edited",
			"record_id", recordID,
			"txn_id", txnID,
			"attempt", attempt+1,
		)
		return txn, nil
	}
	return nil, lastErr
}

// DeleteTransaction removes a transaction, subtracting its contribution
// from the aggregates in the same write, under the same optimistic-guard
// retry as EditTransaction.
func (l *Ledger) DeleteTransaction(ctx context.Context, recordID id.RecordID, txnID id.TransactionID) error {
	var lastErr error
	for attempt := 0; attempt < l.editRetries; attempt++ {
		prev, err := l.store.GetTransaction(ctx, recordID, txnID)
		if err != nil {
			return err
		}

		err = l.store.RemoveTransaction(ctx, recordID, txnID, prev.Snapshot())
		if errors.Is(err, ErrConcurrentModification) {
			lastErr = err
			continue
		}
		if err != nil {
			return err
		}

		l.plugins.EmitTransactionRemoved(ctx, recordID.String(), txnID.String())
		l.logger.Debug("transaction removed", "record_id", recordID, "txn_id", txnID)
		return nil
	}
	return lastErr
}

// ReconcileRecord rewrites a record's aggregates from a full refold of its
// stored transactions. This is the repair pass for drift introduced outside
// the atomic write boundary, e.g. by a client that crashed between
// computing a delta and submitting it.
func (l *Ledger) ReconcileRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	r, err := l.store.ReconcileRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	l.plugins.EmitRecordReconciled(ctx, r)
	l.logger.Debug("record reconciled",
		"record_id", recordID,
		"balance", r.CurrentBalance.String(),
	)
	return r, nil
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func (l *Ledger) newTransaction(in *TransactionInput) *record.Transaction {
	date := l.now().UTC()
	if in.Date != nil {
		date = in.Date.UTC()
	}
	return &record.Transaction{
		ID:          id.NewTransactionID(),
		Date:        date,
		Amount:      in.Amount,
		Type:        in.Type,
		Description: in.Description,
		Employee:    in.Employee,
	}
}

// retryRead retries an operation on ErrStoreUnavailable with exponential
// backoff, up to maxTries attempts. Any other error is surfaced
// immediately.
func retryRead[T any](ctx context.Context, maxTries uint, fn func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !errors.Is(err, ErrStoreUnavailable) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries),
	)
}
