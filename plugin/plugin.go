// Package plugin provides an extensible hook system for costledger.
// Plugins subscribe to ledger lifecycle events. This is how presentation
// layers observe live changes (a mutation landed, refresh the view) and how
// side channels like notification publishers attach without the ledger
// knowing about them.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Folder lifecycle hooks
// ──────────────────────────────────────────────────

// OnFolderCreated is called when a new folder is created.
type OnFolderCreated interface {
	Plugin
	OnFolderCreated(ctx context.Context, f interface{}) error
}

// OnFolderOpened is called when a folder is opened (its records loaded).
type OnFolderOpened interface {
	Plugin
	OnFolderOpened(ctx context.Context, f interface{}) error
}

// OnFolderDeleted is called after a folder and its subtree are removed.
type OnFolderDeleted interface {
	Plugin
	OnFolderDeleted(ctx context.Context, folderID string) error
}

// ──────────────────────────────────────────────────
// Record lifecycle hooks
// ──────────────────────────────────────────────────

// OnRecordCreated is called when a new record is created.
type OnRecordCreated interface {
	Plugin
	OnRecordCreated(ctx context.Context, r interface{}) error
}

// OnRecordUpdated is called when a record's metadata is edited.
type OnRecordUpdated interface {
	Plugin
	OnRecordUpdated(ctx context.Context, r interface{}) error
}

// OnRecordDeleted is called after a record and its transactions are removed.
type OnRecordDeleted interface {
	Plugin
	OnRecordDeleted(ctx context.Context, recordID string) error
}

// OnRecordReconciled is called after a reconciliation pass rewrote a
// record's aggregates from a full refold.
type OnRecordReconciled interface {
	Plugin
	OnRecordReconciled(ctx context.Context, r interface{}) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied is called when a transaction is appended to a record.
type OnTransactionApplied interface {
	Plugin
	OnTransactionApplied(ctx context.Context, recordID string, txn interface{}) error
}

// OnTransactionEdited is called when an existing transaction is rewritten.
type OnTransactionEdited interface {
	Plugin
	OnTransactionEdited(ctx context.Context, recordID string, txn interface{}) error
}

// OnTransactionRemoved is called when a transaction is deleted.
type OnTransactionRemoved interface {
	Plugin
	OnTransactionRemoved(ctx context.Context, recordID, txnID string) error
}
