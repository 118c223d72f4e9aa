package audithook_test

import (
	"context"
	"sync"
	"testing"

	"github.com/xraph/costledger"
	"github.com/xraph/costledger/audithook"
	"github.com/xraph/costledger/record"
	"github.com/xraph/costledger/store/memory"
	"github.com/xraph/costledger/types"
)

type capture struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (c *capture) record(_ context.Context, evt *audithook.AuditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capture) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, evt := range c.events {
		out[i] = evt.Action
	}
	return out
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	var trail capture

	l := costledger.New(memory.New(),
		costledger.WithPlugin(audithook.New(audithook.RecorderFunc(trail.record))),
	)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	f, err := l.CreateFolder(ctx, "Q1")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	rec, err := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	txn, err := l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
		Amount: types.USD(250_00),
		Type:   record.TxnReceived,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.DeleteTransaction(ctx, rec.ID, txn.ID); err != nil {
		t.Fatalf("delete txn: %v", err)
	}

	want := []string{
		audithook.ActionFolderCreated,
		audithook.ActionRecordCreated,
		audithook.ActionTransactionApplied,
		audithook.ActionTransactionRemoved,
	}
	got := trail.actions()
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}

	trail.mu.Lock()
	applied := trail.events[2]
	trail.mu.Unlock()
	if applied.Resource != audithook.ResourceTransaction || applied.ResourceID != txn.ID.String() {
		t.Errorf("applied event resource = %s/%s", applied.Resource, applied.ResourceID)
	}
	if applied.Metadata["record_id"] != rec.ID.String() {
		t.Errorf("applied event record_id = %v", applied.Metadata["record_id"])
	}
}

func TestDisabledActions(t *testing.T) {
	ctx := context.Background()
	var trail capture

	l := costledger.New(memory.New(),
		costledger.WithPlugin(audithook.New(
			audithook.RecorderFunc(trail.record),
			audithook.WithDisabledActions(audithook.ActionFolderCreated),
		)),
	)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := l.CreateFolder(ctx, "Q1"); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := l.DeleteFolder(ctx, "Q1"); err != nil {
		t.Fatalf("delete folder: %v", err)
	}

	got := trail.actions()
	if len(got) != 1 || got[0] != audithook.ActionFolderDeleted {
		t.Fatalf("got events %v, want only folder.deleted", got)
	}
}
