package record

import (
	"testing"
	"time"

	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/types"
)

func newTestRecord() *Record {
	return &Record{
		Entity:         types.NewEntity(),
		ID:             id.NewRecordID(),
		FolderID:       id.NewFolderID(),
		Reason:         "Retainer",
		TotalAmount:    types.USD(100000),
		Category:       CategoryProject,
		Type:           TypeCredit,
		TotalReceived:  types.Zero("usd"),
		TotalPaid:      types.Zero("usd"),
		CurrentBalance: types.Zero("usd"),
		Transactions:   make(map[string]*Transaction),
	}
}

func addTxn(r *Record, amount int64, typ TxnType) *Transaction {
	txn := &Transaction{
		ID:     id.NewTransactionID(),
		Date:   time.Now().UTC(),
		Amount: types.USD(amount),
		Type:   typ,
	}
	r.Transactions[txn.ID.String()] = txn
	r.Apply(txn.Contribution())
	return txn
}

func TestContribution(t *testing.T) {
	tests := []struct {
		name         string
		txn          Transaction
		wantReceived int64
		wantPaid     int64
	}{
		{"received", Transaction{Amount: types.USD(10000), Type: TxnReceived}, 10000, 0},
		{"paid", Transaction{Amount: types.USD(4000), Type: TxnPaid}, 0, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.txn.Contribution()
			if d.Received.Amount != tt.wantReceived {
				t.Errorf("Received: got %d, want %d", d.Received.Amount, tt.wantReceived)
			}
			if d.Paid.Amount != tt.wantPaid {
				t.Errorf("Paid: got %d, want %d", d.Paid.Amount, tt.wantPaid)
			}
		})
	}
}

func TestDeltaArithmetic(t *testing.T) {
	received := Delta{Received: types.USD(10000), Paid: types.Zero("usd")}
	paid := Delta{Received: types.Zero("usd"), Paid: types.USD(4000)}

	if got := received.Balance(); got.Amount != 10000 {
		t.Errorf("Balance of received delta: got %d, want 10000", got.Amount)
	}
	if got := paid.Balance(); got.Amount != -4000 {
		t.Errorf("Balance of paid delta: got %d, want -4000", got.Amount)
	}

	// Replacing a received 100.00 with a paid 40.00
	net := paid.Sub(received)
	if net.Received.Amount != -10000 || net.Paid.Amount != 4000 {
		t.Errorf("Sub: got %+v", net)
	}

	neg := received.Negate()
	if neg.Received.Amount != -10000 || neg.Paid.Amount != 0 {
		t.Errorf("Negate: got %+v", neg)
	}
}

// Aggregates maintained incrementally through Apply must equal a full refold
// after every step.
func TestApplyEquivalentToRefold(t *testing.T) {
	r := newTestRecord()

	steps := []struct {
		amount int64
		typ    TxnType
	}{
		{30000, TxnReceived},
		{5000, TxnPaid},
		{12050, TxnReceived},
		{99, TxnPaid},
		{1, TxnReceived},
	}

	for _, s := range steps {
		addTxn(r, s.amount, s.typ)

		if !r.Consistent() {
			received, paid, balance := r.Refold()
			t.Fatalf("aggregates diverged from refold: have %v/%v/%v, refold %v/%v/%v",
				r.TotalReceived, r.TotalPaid, r.CurrentBalance, received, paid, balance)
		}
	}

	if r.TotalReceived.Amount != 42051 || r.TotalPaid.Amount != 5099 {
		t.Errorf("final totals: got %d/%d", r.TotalReceived.Amount, r.TotalPaid.Amount)
	}
	if r.CurrentBalance.Amount != 42051-5099 {
		t.Errorf("final balance: got %d", r.CurrentBalance.Amount)
	}
}

func TestAmountRemaining(t *testing.T) {
	r := newTestRecord()
	addTxn(r, 30000, TxnReceived)

	if got := r.AmountRemaining(); got.Amount != 70000 {
		t.Errorf("AmountRemaining: got %d, want 70000", got.Amount)
	}

	// Direct metadata edits to TotalAmount change the remaining amount on
	// the next read without touching the aggregates.
	r.TotalAmount = types.USD(50000)
	if got := r.AmountRemaining(); got.Amount != 20000 {
		t.Errorf("AmountRemaining after TotalAmount edit: got %d, want 20000", got.Amount)
	}
	if r.TotalReceived.Amount != 30000 {
		t.Errorf("TotalReceived must be untouched by metadata edits, got %d", r.TotalReceived.Amount)
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseCategory("project"); err != nil {
		t.Errorf("ParseCategory(project): %v", err)
	}
	if _, err := ParseCategory("misc"); err == nil {
		t.Error("ParseCategory(misc): expected error")
	}
	if _, err := ParseType("credit"); err != nil {
		t.Errorf("ParseType(credit): %v", err)
	}
	if _, err := ParseType("both"); err == nil {
		t.Error("ParseType(both): expected error")
	}
	if _, err := ParseTxnType("paid"); err != nil {
		t.Errorf("ParseTxnType(paid): %v", err)
	}
	if _, err := ParseTxnType("sent"); err == nil {
		t.Error("ParseTxnType(sent): expected error")
	}
}

func TestSnapshotGuard(t *testing.T) {
	txn := &Transaction{ID: id.NewTransactionID(), Amount: types.USD(10000), Type: TxnReceived}
	snap := txn.Snapshot()

	if !snap.Contribution().Received.Equal(types.USD(10000)) {
		t.Errorf("snapshot contribution mismatch: %+v", snap.Contribution())
	}

	txn.Amount = types.USD(9999)
	if snap.Amount.Equal(txn.Amount) {
		t.Error("snapshot must not alias the live transaction")
	}
}
