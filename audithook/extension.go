// Package audithook bridges Ledger lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface instead of depending on any
// concrete audit store. Callers inject a RecorderFunc adapter that bridges
// to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/costledger/folder"
	"github.com/xraph/costledger/plugin"
	"github.com/xraph/costledger/record"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnFolderCreated      = (*Extension)(nil)
	_ plugin.OnFolderOpened       = (*Extension)(nil)
	_ plugin.OnFolderDeleted      = (*Extension)(nil)
	_ plugin.OnRecordCreated      = (*Extension)(nil)
	_ plugin.OnRecordUpdated      = (*Extension)(nil)
	_ plugin.OnRecordDeleted      = (*Extension)(nil)
	_ plugin.OnRecordReconciled   = (*Extension)(nil)
	_ plugin.OnTransactionApplied = (*Extension)(nil)
	_ plugin.OnTransactionEdited  = (*Extension)(nil)
	_ plugin.OnTransactionRemoved = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Folder lifecycle hooks
// ──────────────────────────────────────────────────

// OnFolderCreated implements plugin.OnFolderCreated.
func (e *Extension) OnFolderCreated(ctx context.Context, f interface{}) error {
	folderID, name := folderDetails(f)
	return e.record(ctx, ActionFolderCreated, SeverityInfo, OutcomeSuccess,
		ResourceFolder, folderID, CategoryWorkspace,
		"name", name,
	)
}

// OnFolderOpened implements plugin.OnFolderOpened.
func (e *Extension) OnFolderOpened(ctx context.Context, f interface{}) error {
	folderID, name := folderDetails(f)
	return e.record(ctx, ActionFolderOpened, SeverityInfo, OutcomeSuccess,
		ResourceFolder, folderID, CategoryWorkspace,
		"name", name,
	)
}

// OnFolderDeleted implements plugin.OnFolderDeleted.
func (e *Extension) OnFolderDeleted(ctx context.Context, folderID string) error {
	return e.record(ctx, ActionFolderDeleted, SeverityWarning, OutcomeSuccess,
		ResourceFolder, folderID, CategoryWorkspace,
		"folder_id", folderID,
	)
}

// ──────────────────────────────────────────────────
// Record lifecycle hooks
// ──────────────────────────────────────────────────

// OnRecordCreated implements plugin.OnRecordCreated.
func (e *Extension) OnRecordCreated(ctx context.Context, r interface{}) error {
	recordID, kv := recordDetails(r)
	return e.record(ctx, ActionRecordCreated, SeverityInfo, OutcomeSuccess,
		ResourceRecord, recordID, CategoryLedger, kv...)
}

// OnRecordUpdated implements plugin.OnRecordUpdated.
func (e *Extension) OnRecordUpdated(ctx context.Context, r interface{}) error {
	recordID, kv := recordDetails(r)
	return e.record(ctx, ActionRecordUpdated, SeverityInfo, OutcomeSuccess,
		ResourceRecord, recordID, CategoryLedger, kv...)
}

// OnRecordDeleted implements plugin.OnRecordDeleted.
func (e *Extension) OnRecordDeleted(ctx context.Context, recordID string) error {
	return e.record(ctx, ActionRecordDeleted, SeverityWarning, OutcomeSuccess,
		ResourceRecord, recordID, CategoryLedger,
		"record_id", recordID,
	)
}

// OnRecordReconciled implements plugin.OnRecordReconciled. A reconcile pass
// is worth an audit line even when it found nothing to repair.
func (e *Extension) OnRecordReconciled(ctx context.Context, r interface{}) error {
	recordID, kv := recordDetails(r)
	return e.record(ctx, ActionRecordReconciled, SeverityWarning, OutcomeSuccess,
		ResourceRecord, recordID, CategoryLedger, kv...)
}

// ──────────────────────────────────────────────────
// Transaction lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied implements plugin.OnTransactionApplied.
func (e *Extension) OnTransactionApplied(ctx context.Context, recordID string, txn interface{}) error {
	txnID, kv := transactionDetails(recordID, txn)
	return e.record(ctx, ActionTransactionApplied, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, txnID, CategoryMoney, kv...)
}

// OnTransactionEdited implements plugin.OnTransactionEdited.
func (e *Extension) OnTransactionEdited(ctx context.Context, recordID string, txn interface{}) error {
	txnID, kv := transactionDetails(recordID, txn)
	return e.record(ctx, ActionTransactionEdited, SeverityWarning, OutcomeSuccess,
		ResourceTransaction, txnID, CategoryMoney, kv...)
}

// OnTransactionRemoved implements plugin.OnTransactionRemoved.
func (e *Extension) OnTransactionRemoved(ctx context.Context, recordID, txnID string) error {
	return e.record(ctx, ActionTransactionRemoved, SeverityWarning, OutcomeSuccess,
		ResourceTransaction, txnID, CategoryMoney,
		"record_id", recordID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func folderDetails(v interface{}) (folderID, name string) {
	if f, ok := v.(*folder.Folder); ok {
		return f.ID.String(), f.Name
	}
	return "", ""
}

func recordDetails(v interface{}) (recordID string, kv []any) {
	r, ok := v.(*record.Record)
	if !ok {
		return "", nil
	}
	return r.ID.String(), []any{
		"folder_id", r.FolderID.String(),
		"reason", r.Reason,
		"balance", r.CurrentBalance.String(),
	}
}

func transactionDetails(recordID string, v interface{}) (txnID string, kv []any) {
	kv = []any{"record_id", recordID}
	txn, ok := v.(*record.Transaction)
	if !ok {
		return "", kv
	}
	kv = append(kv,
		"type", string(txn.Type),
		"amount", txn.Amount.String(),
	)
	return txn.ID.String(), kv
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
