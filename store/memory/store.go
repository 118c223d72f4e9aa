// Package memory provides an in-memory Store driver, used in tests and
// single-process demos. All mutations run under one lock, so aggregate
// deltas apply exactly as a server-side atomic increment would.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/costledger"
	"github.com/xraph/costledger/folder"
	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/record"
	"github.com/xraph/costledger/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	folders map[string]*folder.Folder
	records map[string]*record.Record
}

func New() *Store {
	return &Store{
		folders: make(map[string]*folder.Folder),
		records: make(map[string]*record.Record),
	}
}

// Folder Store implementation

func (s *Store) CreateFolder(_ context.Context, f *folder.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.folders[f.ID.String()]; exists {
		return costledger.ErrAlreadyExists
	}
	// Uniqueness is on the exact name, matching the unique index the mongo
	// driver enforces.
	for _, existing := range s.folders {
		if existing.Name == f.Name {
			return costledger.ErrDuplicateName
		}
	}

	s.folders[f.ID.String()] = cloneFolder(f)
	return nil
}

func (s *Store) GetFolder(_ context.Context, folderID id.FolderID) (*folder.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.folders[folderID.String()]; ok {
		return cloneFolder(f), nil
	}
	return nil, costledger.ErrFolderNotFound
}

func (s *Store) GetFolderByName(_ context.Context, name string) (*folder.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.folders {
		if f.Name == name {
			return cloneFolder(f), nil
		}
	}
	return nil, costledger.ErrFolderNotFound
}

func (s *Store) ListFolders(_ context.Context) ([]*folder.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*folder.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		result = append(result, cloneFolder(f))
	}
	return result, nil
}

func (s *Store) TouchFolder(_ context.Context, folderID id.FolderID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders[folderID.String()]
	if !ok {
		return costledger.ErrFolderNotFound
	}
	at = at.UTC()
	f.LastAccessed = &at
	return nil
}

func (s *Store) DeleteFolder(_ context.Context, folderID id.FolderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[folderID.String()]; !ok {
		return costledger.ErrFolderNotFound
	}
	delete(s.folders, folderID.String())

	// Cascade: drop every record in the folder, transactions included.
	for key, r := range s.records {
		if r.FolderID == folderID {
			delete(s.records, key)
		}
	}
	return nil
}

// Record Store implementation

func (s *Store) CreateRecord(_ context.Context, r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[r.FolderID.String()]; !ok {
		return costledger.ErrFolderNotFound
	}
	if _, exists := s.records[r.ID.String()]; exists {
		return costledger.ErrAlreadyExists
	}

	stored := cloneRecord(r)
	// Seed aggregates from the embedded transactions so the record never
	// exists with transactions but unfolded aggregates.
	received, paid, balance := stored.Refold()
	stored.TotalReceived = received
	stored.TotalPaid = paid
	stored.CurrentBalance = balance
	for _, txn := range stored.Transactions {
		txn.BalanceAfter = balance
	}

	s.records[stored.ID.String()] = stored
	copyAggregates(r, stored)
	return nil
}

func (s *Store) GetRecord(_ context.Context, recordID id.RecordID) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.records[recordID.String()]; ok {
		return cloneRecord(r), nil
	}
	return nil, costledger.ErrRecordNotFound
}

func (s *Store) ListRecords(_ context.Context, folderID id.FolderID) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*record.Record, 0)
	for _, r := range s.records {
		if r.FolderID == folderID {
			result = append(result, cloneRecord(r))
		}
	}
	return result, nil
}

func (s *Store) UpdateRecordMetadata(_ context.Context, recordID id.RecordID, meta record.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID.String()]
	if !ok {
		return costledger.ErrRecordNotFound
	}

	r.Reason = meta.Reason
	r.TotalAmount = meta.TotalAmount
	r.Category = meta.Category
	r.Type = meta.Type
	r.Description = meta.Description
	r.DueDate = cloneTime(meta.DueDate)
	r.Touch()
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[recordID.String()]; !ok {
		return costledger.ErrRecordNotFound
	}
	delete(s.records, recordID.String())
	return nil
}

// Transaction Store implementation

func (s *Store) AppendTransaction(_ context.Context, recordID id.RecordID, txn *record.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID.String()]
	if !ok {
		return costledger.ErrRecordNotFound
	}

	if existing, ok := r.Transactions[txn.ID.String()]; ok {
		// Retry with a pre-allocated id after an ambiguous failure: the
		// write already landed, report the stored outcome.
		txn.BalanceAfter = existing.BalanceAfter
		return nil
	}

	r.Apply(txn.Contribution())
	txn.BalanceAfter = r.CurrentBalance
	if r.Transactions == nil {
		r.Transactions = make(map[string]*record.Transaction)
	}
	r.Transactions[txn.ID.String()] = cloneTransaction(txn)
	r.Touch()
	return nil
}

func (s *Store) ReplaceTransaction(_ context.Context, recordID id.RecordID, txn *record.Transaction, prev record.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID.String()]
	if !ok {
		return costledger.ErrRecordNotFound
	}
	existing, ok := r.Transactions[txn.ID.String()]
	if !ok {
		return costledger.ErrTransactionNotFound
	}
	if !existing.Amount.Equal(prev.Amount) || existing.Type != prev.Type {
		return costledger.ErrConcurrentModification
	}

	r.Apply(txn.Contribution().Sub(prev.Contribution()))
	txn.BalanceAfter = r.CurrentBalance
	r.Transactions[txn.ID.String()] = cloneTransaction(txn)
	r.Touch()
	return nil
}

func (s *Store) RemoveTransaction(_ context.Context, recordID id.RecordID, txnID id.TransactionID, prev record.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID.String()]
	if !ok {
		return costledger.ErrRecordNotFound
	}
	existing, ok := r.Transactions[txnID.String()]
	if !ok {
		return costledger.ErrTransactionNotFound
	}
	if !existing.Amount.Equal(prev.Amount) || existing.Type != prev.Type {
		return costledger.ErrConcurrentModification
	}

	r.Apply(existing.Contribution().Negate())
	delete(r.Transactions, txnID.String())
	r.Touch()
	return nil
}

func (s *Store) GetTransaction(_ context.Context, recordID id.RecordID, txnID id.TransactionID) (*record.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[recordID.String()]
	if !ok {
		return nil, costledger.ErrRecordNotFound
	}
	if txn, ok := r.Transactions[txnID.String()]; ok {
		return cloneTransaction(txn), nil
	}
	return nil, costledger.ErrTransactionNotFound
}

func (s *Store) ReconcileRecord(_ context.Context, recordID id.RecordID) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID.String()]
	if !ok {
		return nil, costledger.ErrRecordNotFound
	}

	received, paid, balance := r.Refold()
	r.TotalReceived = received
	r.TotalPaid = paid
	r.CurrentBalance = balance
	r.Touch()
	return cloneRecord(r), nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Clone helpers. The store hands out copies so callers can never mutate
// stored state outside the lock.

func cloneFolder(f *folder.Folder) *folder.Folder {
	out := *f
	out.LastAccessed = cloneTime(f.LastAccessed)
	return &out
}

func cloneRecord(r *record.Record) *record.Record {
	out := *r
	out.DueDate = cloneTime(r.DueDate)
	out.Transactions = make(map[string]*record.Transaction, len(r.Transactions))
	for key, txn := range r.Transactions {
		out.Transactions[key] = cloneTransaction(txn)
	}
	return &out
}

func cloneTransaction(t *record.Transaction) *record.Transaction {
	out := *t
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func copyAggregates(dst, src *record.Record) {
	dst.TotalReceived = src.TotalReceived
	dst.TotalPaid = src.TotalPaid
	dst.CurrentBalance = src.CurrentBalance
	for key, txn := range dst.Transactions {
		if stored, ok := src.Transactions[key]; ok {
			txn.BalanceAfter = stored.BalanceAfter
		}
	}
}
