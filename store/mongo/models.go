package mongo

import (
	"time"

	"github.com/xraph/costledger/folder"
	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/record"
	"github.com/xraph/costledger/types"
)

// Persistence models. Amounts are flattened to integer minor units so the
// aggregate fields can be updated with server-side arithmetic; a record's
// single currency is stored once on the document.

type folderModel struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	CreatedAt    time.Time  `bson:"created_at"`
	LastAccessed *time.Time `bson:"last_accessed,omitempty"`
}

type transactionModel struct {
	ID           string    `bson:"id"`
	Date         time.Time `bson:"date"`
	Amount       int64     `bson:"amount"`
	Type         string    `bson:"type"`
	Description  string    `bson:"description,omitempty"`
	Employee     string    `bson:"employee,omitempty"`
	BalanceAfter int64     `bson:"balance_after"`
}

type recordModel struct {
	ID             string                      `bson:"_id"`
	FolderID       string                      `bson:"folder_id"`
	Reason         string                      `bson:"reason"`
	TotalAmount    int64                       `bson:"total_amount"`
	Currency       string                      `bson:"currency"`
	Category       string                      `bson:"category"`
	Type           string                      `bson:"type"`
	Description    string                      `bson:"description,omitempty"`
	DueDate        *time.Time                  `bson:"due_date,omitempty"`
	TotalReceived  int64                       `bson:"total_received"`
	TotalPaid      int64                       `bson:"total_paid"`
	CurrentBalance int64                       `bson:"current_balance"`
	CreatedAt      time.Time                   `bson:"created_at"`
	UpdatedAt      time.Time                   `bson:"updated_at"`
	Transactions   map[string]transactionModel `bson:"transactions"`
}

func toFolderModel(f *folder.Folder) *folderModel {
	return &folderModel{
		ID:           f.ID.String(),
		Name:         f.Name,
		CreatedAt:    f.CreatedAt,
		LastAccessed: f.LastAccessed,
	}
}

func fromFolderModel(m *folderModel) (*folder.Folder, error) {
	fid, err := id.ParseFolderID(m.ID)
	if err != nil {
		return nil, err
	}
	return &folder.Folder{
		ID:           fid,
		Name:         m.Name,
		CreatedAt:    m.CreatedAt,
		LastAccessed: m.LastAccessed,
	}, nil
}

func toTransactionModel(t *record.Transaction) transactionModel {
	return transactionModel{
		ID:           t.ID.String(),
		Date:         t.Date,
		Amount:       t.Amount.Amount,
		Type:         string(t.Type),
		Description:  t.Description,
		Employee:     t.Employee,
		BalanceAfter: t.BalanceAfter.Amount,
	}
}

func fromTransactionModel(m transactionModel, currency string) (*record.Transaction, error) {
	tid, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	txnType, err := record.ParseTxnType(m.Type)
	if err != nil {
		return nil, err
	}
	return &record.Transaction{
		ID:           tid,
		Date:         m.Date,
		Amount:       types.Money{Amount: m.Amount, Currency: currency},
		Type:         txnType,
		Description:  m.Description,
		Employee:     m.Employee,
		BalanceAfter: types.Money{Amount: m.BalanceAfter, Currency: currency},
	}, nil
}

func toRecordModel(r *record.Record) *recordModel {
	m := &recordModel{
		ID:             r.ID.String(),
		FolderID:       r.FolderID.String(),
		Reason:         r.Reason,
		TotalAmount:    r.TotalAmount.Amount,
		Currency:       r.Currency(),
		Category:       string(r.Category),
		Type:           string(r.Type),
		Description:    r.Description,
		DueDate:        r.DueDate,
		TotalReceived:  r.TotalReceived.Amount,
		TotalPaid:      r.TotalPaid.Amount,
		CurrentBalance: r.CurrentBalance.Amount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Transactions:   make(map[string]transactionModel, len(r.Transactions)),
	}
	for key, txn := range r.Transactions {
		m.Transactions[key] = toTransactionModel(txn)
	}
	return m
}

func fromRecordModel(m *recordModel) (*record.Record, error) {
	rid, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	fid, err := id.ParseFolderID(m.FolderID)
	if err != nil {
		return nil, err
	}
	category, err := record.ParseCategory(m.Category)
	if err != nil {
		return nil, err
	}
	recType, err := record.ParseType(m.Type)
	if err != nil {
		return nil, err
	}

	r := &record.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             rid,
		FolderID:       fid,
		Reason:         m.Reason,
		TotalAmount:    types.Money{Amount: m.TotalAmount, Currency: m.Currency},
		Category:       category,
		Type:           recType,
		Description:    m.Description,
		DueDate:        m.DueDate,
		TotalReceived:  types.Money{Amount: m.TotalReceived, Currency: m.Currency},
		TotalPaid:      types.Money{Amount: m.TotalPaid, Currency: m.Currency},
		CurrentBalance: types.Money{Amount: m.CurrentBalance, Currency: m.Currency},
		Transactions:   make(map[string]*record.Transaction, len(m.Transactions)),
	}
	for key, tm := range m.Transactions {
		txn, err := fromTransactionModel(tm, m.Currency)
		if err != nil {
			return nil, err
		}
		r.Transactions[key] = txn
	}
	return r, nil
}
