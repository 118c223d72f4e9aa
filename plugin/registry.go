package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// Interfaces are cached at registration so emission never type-switches on
// the hot path. Hook failures are logged and never propagated: a broken
// subscriber must not fail the mutation it observed.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onFolderCreated      []OnFolderCreated
	onFolderOpened       []OnFolderOpened
	onFolderDeleted      []OnFolderDeleted
	onRecordCreated      []OnRecordCreated
	onRecordUpdated      []OnRecordUpdated
	onRecordDeleted      []OnRecordDeleted
	onRecordReconciled   []OnRecordReconciled
	onTransactionApplied []OnTransactionApplied
	onTransactionEdited  []OnTransactionEdited
	onTransactionRemoved []OnTransactionRemoved
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnFolderCreated); ok {
		r.onFolderCreated = append(r.onFolderCreated, v)
	}
	if v, ok := p.(OnFolderOpened); ok {
		r.onFolderOpened = append(r.onFolderOpened, v)
	}
	if v, ok := p.(OnFolderDeleted); ok {
		r.onFolderDeleted = append(r.onFolderDeleted, v)
	}
	if v, ok := p.(OnRecordCreated); ok {
		r.onRecordCreated = append(r.onRecordCreated, v)
	}
	if v, ok := p.(OnRecordUpdated); ok {
		r.onRecordUpdated = append(r.onRecordUpdated, v)
	}
	if v, ok := p.(OnRecordDeleted); ok {
		r.onRecordDeleted = append(r.onRecordDeleted, v)
	}
	if v, ok := p.(OnRecordReconciled); ok {
		r.onRecordReconciled = append(r.onRecordReconciled, v)
	}
	if v, ok := p.(OnTransactionApplied); ok {
		r.onTransactionApplied = append(r.onTransactionApplied, v)
	}
	if v, ok := p.(OnTransactionEdited); ok {
		r.onTransactionEdited = append(r.onTransactionEdited, v)
	}
	if v, ok := p.(OnTransactionRemoved); ok {
		r.onTransactionRemoved = append(r.onTransactionRemoved, v)
	}

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitFolderCreated emits a folder created event.
func (r *Registry) EmitFolderCreated(ctx context.Context, f interface{}) {
	r.mu.RLock()
	plugins := r.onFolderCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFolderCreated(ctx, f)
		}); err != nil {
			r.logger.Warn("plugin OnFolderCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitFolderOpened emits a folder opened event.
func (r *Registry) EmitFolderOpened(ctx context.Context, f interface{}) {
	r.mu.RLock()
	plugins := r.onFolderOpened
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFolderOpened(ctx, f)
		}); err != nil {
			r.logger.Warn("plugin OnFolderOpened failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitFolderDeleted emits a folder deleted event.
func (r *Registry) EmitFolderDeleted(ctx context.Context, folderID string) {
	r.mu.RLock()
	plugins := r.onFolderDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFolderDeleted(ctx, folderID)
		}); err != nil {
			r.logger.Warn("plugin OnFolderDeleted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRecordCreated emits a record created event.
func (r *Registry) EmitRecordCreated(ctx context.Context, rec interface{}) {
	r.mu.RLock()
	plugins := r.onRecordCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRecordCreated(ctx, rec)
		}); err != nil {
			r.logger.Warn("plugin OnRecordCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRecordUpdated emits a record metadata updated event.
func (r *Registry) EmitRecordUpdated(ctx context.Context, rec interface{}) {
	r.mu.RLock()
	plugins := r.onRecordUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRecordUpdated(ctx, rec)
		}); err != nil {
			r.logger.Warn("plugin OnRecordUpdated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRecordDeleted emits a record deleted event.
func (r *Registry) EmitRecordDeleted(ctx context.Context, recordID string) {
	r.mu.RLock()
	plugins := r.onRecordDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRecordDeleted(ctx, recordID)
		}); err != nil {
			r.logger.Warn("plugin OnRecordDeleted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRecordReconciled emits a record reconciled event.
func (r *Registry) EmitRecordReconciled(ctx context.Context, rec interface{}) {
	r.mu.RLock()
	plugins := r.onRecordReconciled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRecordReconciled(ctx, rec)
		}); err != nil {
			r.logger.Warn("plugin OnRecordReconciled failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTransactionApplied emits a transaction appended event.
func (r *Registry) EmitTransactionApplied(ctx context.Context, recordID string, txn interface{}) {
	r.mu.RLock()
	plugins := r.onTransactionApplied
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionApplied(ctx, recordID, txn)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionApplied failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTransactionEdited emits a transaction edited event.
func (r *Registry) EmitTransactionEdited(ctx context.Context, recordID string, txn interface{}) {
	r.mu.RLock()
	plugins := r.onTransactionEdited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionEdited(ctx, recordID, txn)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionEdited failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTransactionRemoved emits a transaction removed event.
func (r *Registry) EmitTransactionRemoved(ctx context.Context, recordID, txnID string) {
	r.mu.RLock()
	plugins := r.onTransactionRemoved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionRemoved(ctx, recordID, txnID)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionRemoved failed", "plugin", p.Name(), "error", err)
		}
	}
}

func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
