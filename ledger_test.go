package costledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/xraph/costledger"
	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/record"
	"github.com/xraph/costledger/store/memory"
	"github.com/xraph/costledger/types"
)

func newLedger(t *testing.T) *costledger.Ledger {
	t.Helper()
	l := costledger.New(memory.New())
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, err := l.CreateFolder(ctx, "Q1")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	rec, err := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
		Initial: &costledger.TransactionInput{
			Amount: types.USD(300_00),
			Type:   record.TxnReceived,
		},
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	got, err := l.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.TotalReceived.Amount != 300_00 {
		t.Errorf("total received = %d, want 30000", got.TotalReceived.Amount)
	}
	if got.AmountRemaining().Amount != 700_00 {
		t.Errorf("remaining = %d, want 70000", got.AmountRemaining().Amount)
	}
	if got.CurrentBalance.Amount != 300_00 {
		t.Errorf("balance = %d, want 30000", got.CurrentBalance.Amount)
	}
	if len(got.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(got.Transactions))
	}

	paid, err := l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
		Amount:   types.USD(50_00),
		Type:     record.TxnPaid,
		Employee: "Alice",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if paid.BalanceAfter.Amount != 250_00 {
		t.Errorf("balance after payout = %d, want 25000", paid.BalanceAfter.Amount)
	}

	got, _ = l.GetRecord(ctx, rec.ID)
	if got.TotalPaid.Amount != 50_00 || got.CurrentBalance.Amount != 250_00 {
		t.Errorf("after payout: paid=%d balance=%d", got.TotalPaid.Amount, got.CurrentBalance.Amount)
	}
	if !got.Consistent() {
		t.Error("aggregates must equal a fold over the transactions")
	}

	if err := l.DeleteTransaction(ctx, rec.ID, paid.ID); err != nil {
		t.Fatalf("delete txn: %v", err)
	}
	got, _ = l.GetRecord(ctx, rec.ID)
	if got.TotalReceived.Amount != 300_00 || got.TotalPaid.Amount != 0 || got.CurrentBalance.Amount != 300_00 {
		t.Errorf("after delete: received=%d paid=%d balance=%d",
			got.TotalReceived.Amount, got.TotalPaid.Amount, got.CurrentBalance.Amount)
	}
}

func TestCreateFolderValidation(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	if _, err := l.CreateFolder(ctx, "   "); !costledger.IsValidation(err) {
		t.Errorf("blank name: got %v, want validation error", err)
	}

	if _, err := l.CreateFolder(ctx, "Q1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.CreateFolder(ctx, "Q1"); !errors.Is(err, costledger.ErrDuplicateName) {
		t.Errorf("duplicate name: got %v, want ErrDuplicateName", err)
	}
	// Uniqueness is on the exact name: a different casing is a new folder.
	if _, err := l.CreateFolder(ctx, "q1"); err != nil {
		t.Errorf("differently-cased name: got %v, want a new folder", err)
	}
}

func TestOpenFolderOrdering(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	l := costledger.New(memory.New(), costledger.WithNow(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, name := range []string{"A", "B", "C"} {
		if _, err := l.CreateFolder(ctx, name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	if _, _, err := l.OpenFolder(ctx, "B"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := l.OpenFolder(ctx, "A"); err != nil {
		t.Fatalf("open: %v", err)
	}

	folders, err := l.ListFolders(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	gotNames := make([]string, len(folders))
	for i, f := range folders {
		gotNames[i] = f.Name
	}
	want := []string{"A", "B", "C"}
	for i := range want {
		if gotNames[i] != want[i] {
			t.Fatalf("order = %v, want %v", gotNames, want)
		}
	}
}

func TestInvalidAmountRejectedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, err := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Hosting",
		TotalAmount: types.USD(100_00),
		Category:    record.CategoryOther,
		Type:        record.TypeDebit,
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	for _, amount := range []int64{0, -50_00} {
		_, err := l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
			Amount: types.USD(amount),
			Type:   record.TxnReceived,
		})
		if !errors.Is(err, costledger.ErrInvalidAmount) {
			t.Errorf("amount %d: got %v, want ErrInvalidAmount", amount, err)
		}
	}

	got, _ := l.GetRecord(ctx, rec.ID)
	if len(got.Transactions) != 0 || !got.CurrentBalance.IsZero() {
		t.Error("rejected appends must not touch the record")
	}
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, err := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
			Amount: types.USD(100_00),
			Type:   record.TxnReceived,
		})
	}()
	go func() {
		defer wg.Done()
		_, _ = l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
			Amount: types.USD(40_00),
			Type:   record.TxnPaid,
		})
	}()
	wg.Wait()

	got, err := l.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalReceived.Amount != 100_00 || got.TotalPaid.Amount != 40_00 || got.CurrentBalance.Amount != 60_00 {
		t.Errorf("received=%d paid=%d balance=%d, want 10000/4000/6000",
			got.TotalReceived.Amount, got.TotalPaid.Amount, got.CurrentBalance.Amount)
	}
	if !got.Consistent() {
		t.Error("concurrent appends broke aggregate consistency")
	}
}

func TestEditTransaction(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, _ := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})

	txn, err := l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
		Amount: types.USD(200_00),
		Type:   record.TxnReceived,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// Flip direction and change amount in one edit. The delta applied must
	// be new contribution minus old: received -200, paid +75.
	edited, err := l.EditTransaction(ctx, rec.ID, txn.ID, costledger.TransactionInput{
		Amount:   types.USD(75_00),
		Type:     record.TxnPaid,
		Employee: "Bob",
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Employee != "Bob" {
		t.Errorf("employee = %q", edited.Employee)
	}

	got, _ := l.GetRecord(ctx, rec.ID)
	if got.TotalReceived.Amount != 0 || got.TotalPaid.Amount != 75_00 || got.CurrentBalance.Amount != -75_00 {
		t.Errorf("received=%d paid=%d balance=%d, want 0/7500/-7500",
			got.TotalReceived.Amount, got.TotalPaid.Amount, got.CurrentBalance.Amount)
	}
	if !got.Consistent() {
		t.Error("edit broke aggregate consistency")
	}

	missing := id.NewTransactionID()
	if _, err := l.EditTransaction(ctx, rec.ID, missing, costledger.TransactionInput{
		Amount: types.USD(10_00),
		Type:   record.TxnPaid,
	}); !errors.Is(err, costledger.ErrTransactionNotFound) {
		t.Errorf("edit missing txn: got %v", err)
	}
}

func TestEditRetriesClampedToOneAttempt(t *testing.T) {
	ctx := context.Background()
	l := costledger.New(memory.New(), costledger.WithEditRetries(0))
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, _ := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})
	txn, err := l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
		Amount: types.USD(200_00),
		Type:   record.TxnReceived,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	edited, err := l.EditTransaction(ctx, rec.ID, txn.ID, costledger.TransactionInput{
		Amount: types.USD(150_00),
		Type:   record.TxnReceived,
	})
	if err != nil {
		t.Fatalf("edit with zero configured retries must still run once: %v", err)
	}
	if edited == nil || edited.Amount.Amount != 150_00 {
		t.Fatalf("edit returned %+v", edited)
	}

	if err := l.DeleteTransaction(ctx, rec.ID, txn.ID); err != nil {
		t.Fatalf("delete with zero configured retries must still run once: %v", err)
	}
}

func TestUpdateMetadataLeavesAggregatesAlone(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, _ := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
		Initial: &costledger.TransactionInput{
			Amount: types.USD(300_00),
			Type:   record.TxnReceived,
		},
	})

	updated, err := l.UpdateRecordMetadata(ctx, rec.ID, record.Metadata{
		Reason:      "Retainer (renegotiated)",
		TotalAmount: types.USD(1500_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})
	if err != nil {
		t.Fatalf("update metadata: %v", err)
	}

	if updated.TotalReceived.Amount != 300_00 {
		t.Errorf("metadata edit changed total received: %d", updated.TotalReceived.Amount)
	}
	if updated.AmountRemaining().Amount != 1200_00 {
		t.Errorf("remaining = %d, want 120000", updated.AmountRemaining().Amount)
	}
}

func TestUpdateMetadataRejectsCurrencyChange(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, _ := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
		Initial: &costledger.TransactionInput{
			Amount: types.USD(300_00),
			Type:   record.TxnReceived,
		},
	})

	_, err := l.UpdateRecordMetadata(ctx, rec.ID, record.Metadata{
		Reason:      "Retainer",
		TotalAmount: types.EUR(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})
	if !costledger.IsValidation(err) {
		t.Fatalf("currency change: got %v, want validation error", err)
	}

	got, err := l.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Currency() != "usd" || got.TotalAmount.Amount != 1000_00 {
		t.Errorf("rejected update mutated the record: %s %d", got.Currency(), got.TotalAmount.Amount)
	}
	if got.AmountRemaining().Amount != 700_00 {
		t.Errorf("remaining = %d, want 70000", got.AmountRemaining().Amount)
	}
}

func TestFindRecordByReason(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	if _, err := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Hosting",
		TotalAmount: types.USD(100_00),
		Category:    record.CategoryOther,
		Type:        record.TypeDebit,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := l.FindRecordByReason(ctx, f.ID, "Hosting"); err != nil {
		t.Errorf("exact match: %v", err)
	}
	// Matching is exact: near misses create new records instead of merging.
	if _, err := l.FindRecordByReason(ctx, f.ID, "hosting"); !errors.Is(err, costledger.ErrRecordNotFound) {
		t.Errorf("case mismatch: got %v, want ErrRecordNotFound", err)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, _ := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})

	if err := l.DeleteFolder(ctx, "Q1"); err != nil {
		t.Fatalf("delete folder: %v", err)
	}
	if _, err := l.GetRecord(ctx, rec.ID); !errors.Is(err, costledger.ErrRecordNotFound) {
		t.Errorf("record should be gone with its folder, got %v", err)
	}
	if _, _, err := l.OpenFolder(ctx, "Q1"); !errors.Is(err, costledger.ErrFolderNotFound) {
		t.Errorf("folder should be gone, got %v", err)
	}
}

func TestIdempotentAppendRetry(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := costledger.New(s)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, _ := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})

	txn := &record.Transaction{
		ID:     id.NewTransactionID(),
		Date:   time.Now().UTC(),
		Amount: types.USD(100_00),
		Type:   record.TxnReceived,
	}

	// Submitting the same pre-allocated transaction twice models a client
	// retrying after an ambiguous failure.
	if err := s.AppendTransaction(ctx, rec.ID, txn); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.AppendTransaction(ctx, rec.ID, txn); err != nil {
		t.Fatalf("retried append: %v", err)
	}

	got, _ := l.GetRecord(ctx, rec.ID)
	if got.TotalReceived.Amount != 100_00 {
		t.Errorf("retry double-counted: received = %d", got.TotalReceived.Amount)
	}
	if len(got.Transactions) != 1 {
		t.Errorf("retry duplicated the transaction: %d", len(got.Transactions))
	}
}

// TestRandomSequenceStaysConsistent drives a random mix of appends, edits,
// and deletions and checks after every step that the incrementally
// maintained aggregates equal a full refold of the stored transactions.
func TestRandomSequenceStaysConsistent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, err := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(100_000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	var live []id.TransactionID

	for step := 0; step < 200; step++ {
		op := rng.Intn(3)
		switch {
		case op == 0 || len(live) == 0:
			typ := record.TxnReceived
			if rng.Intn(2) == 1 {
				typ = record.TxnPaid
			}
			txn, err := l.AppendTransaction(ctx, rec.ID, costledger.TransactionInput{
				Amount: types.USD(int64(rng.Intn(500_00) + 1)),
				Type:   typ,
			})
			if err != nil {
				t.Fatalf("step %d append: %v", step, err)
			}
			live = append(live, txn.ID)
		case op == 1:
			i := rng.Intn(len(live))
			typ := record.TxnReceived
			if rng.Intn(2) == 1 {
				typ = record.TxnPaid
			}
			if _, err := l.EditTransaction(ctx, rec.ID, live[i], costledger.TransactionInput{
				Amount: types.USD(int64(rng.Intn(500_00) + 1)),
				Type:   typ,
			}); err != nil {
				t.Fatalf("step %d edit: %v", step, err)
			}
		default:
			i := rng.Intn(len(live))
			if err := l.DeleteTransaction(ctx, rec.ID, live[i]); err != nil {
				t.Fatalf("step %d delete: %v", step, err)
			}
			live = append(live[:i], live[i+1:]...)
		}

		got, err := l.GetRecord(ctx, rec.ID)
		if err != nil {
			t.Fatalf("step %d get: %v", step, err)
		}
		if !got.Consistent() {
			received, paid, balance := got.Refold()
			t.Fatalf("step %d: stored received=%d paid=%d balance=%d, refold %d/%d/%d",
				step, got.TotalReceived.Amount, got.TotalPaid.Amount, got.CurrentBalance.Amount,
				received.Amount, paid.Amount, balance.Amount)
		}
	}
}

func TestReconcileRepairsDrift(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	f, _ := l.CreateFolder(ctx, "Q1")
	rec, _ := l.CreateRecord(ctx, f.ID, costledger.CreateRecordInput{
		Reason:      "Retainer",
		TotalAmount: types.USD(1000_00),
		Category:    record.CategoryProject,
		Type:        record.TypeCredit,
		Initial: &costledger.TransactionInput{
			Amount: types.USD(300_00),
			Type:   record.TxnReceived,
		},
	})

	repaired, err := l.ReconcileRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired.TotalReceived.Amount != 300_00 || repaired.CurrentBalance.Amount != 300_00 {
		t.Errorf("reconcile: received=%d balance=%d", repaired.TotalReceived.Amount, repaired.CurrentBalance.Amount)
	}
	if !repaired.Consistent() {
		t.Error("reconciled record must be consistent")
	}
}
