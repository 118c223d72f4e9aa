// Package store defines the unified storage interface for costledger.
package store

import (
	"context"
	"time"

	"github.com/xraph/costledger/folder"
	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/record"
)

// Store is the unified storage interface for all costledger entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Drivers must apply aggregate changes as server-side increments in the same
// atomic write as the transaction change they reflect. See record.Store for
// the per-method contract.
type Store interface {
	// Folder methods
	CreateFolder(ctx context.Context, f *folder.Folder) error
	GetFolder(ctx context.Context, folderID id.FolderID) (*folder.Folder, error)
	GetFolderByName(ctx context.Context, name string) (*folder.Folder, error)
	ListFolders(ctx context.Context) ([]*folder.Folder, error)
	TouchFolder(ctx context.Context, folderID id.FolderID, at time.Time) error
	DeleteFolder(ctx context.Context, folderID id.FolderID) error

	// Record methods
	CreateRecord(ctx context.Context, r *record.Record) error
	GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error)
	ListRecords(ctx context.Context, folderID id.FolderID) ([]*record.Record, error)
	UpdateRecordMetadata(ctx context.Context, recordID id.RecordID, meta record.Metadata) error
	DeleteRecord(ctx context.Context, recordID id.RecordID) error

	// Transaction methods
	AppendTransaction(ctx context.Context, recordID id.RecordID, txn *record.Transaction) error
	ReplaceTransaction(ctx context.Context, recordID id.RecordID, txn *record.Transaction, prev record.Snapshot) error
	RemoveTransaction(ctx context.Context, recordID id.RecordID, txnID id.TransactionID, prev record.Snapshot) error
	GetTransaction(ctx context.Context, recordID id.RecordID, txnID id.TransactionID) (*record.Transaction, error)
	ReconcileRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
