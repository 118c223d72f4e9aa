// Package mongo provides the MongoDB Store driver.
//
// One record is one document with its transactions embedded as a map, so
// the multi-path write that lands a transaction together with its aggregate
// delta is a single-document update, atomic on the server. Aggregates are
// adjusted with update-pipeline arithmetic ($add over the document's current
// values), never overwritten with client-computed absolutes, so concurrent
// deltas compose regardless of interleaving.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/costledger"
	"github.com/xraph/costledger/folder"
	"github.com/xraph/costledger/id"
	"github.com/xraph/costledger/record"
	costledgerstore "github.com/xraph/costledger/store"
	"github.com/xraph/costledger/types"
)

// Collection name constants.
const (
	colFolders = "cost_folders"
	colRecords = "cost_records"
)

// compile-time interface check
var _ costledgerstore.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a MongoDB store on an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{client: db.Client(), db: db}
}

// Connect dials a MongoDB deployment and returns a store on the named
// database.
func Connect(uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("costledger/mongo: connect: %w", err)
	}
	return New(client.Database(dbName)), nil
}

// Migrate creates the indexes the driver relies on: the unique folder name
// and the record-by-folder lookup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(colFolders).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("costledger/mongo: migrate %s indexes: %w", colFolders, err)
	}

	_, err = s.db.Collection(colRecords).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "folder_id", Value: 1}}},
		{Keys: bson.D{{Key: "folder_id", Value: 1}, {Key: "reason", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("costledger/mongo: migrate %s indexes: %w", colRecords, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Folder Store ====================

func (s *Store) CreateFolder(ctx context.Context, f *folder.Folder) error {
	_, err := s.db.Collection(colFolders).InsertOne(ctx, toFolderModel(f))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return costledger.ErrDuplicateName
		}
		return unavailable("create folder", err)
	}
	return nil
}

func (s *Store) GetFolder(ctx context.Context, folderID id.FolderID) (*folder.Folder, error) {
	var m folderModel
	err := s.db.Collection(colFolders).FindOne(ctx, bson.M{"_id": folderID.String()}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, costledger.ErrFolderNotFound
		}
		return nil, unavailable("get folder", err)
	}
	return fromFolderModel(&m)
}

func (s *Store) GetFolderByName(ctx context.Context, name string) (*folder.Folder, error) {
	var m folderModel
	err := s.db.Collection(colFolders).FindOne(ctx, bson.M{"name": name}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, costledger.ErrFolderNotFound
		}
		return nil, unavailable("get folder by name", err)
	}
	return fromFolderModel(&m)
}

func (s *Store) ListFolders(ctx context.Context) ([]*folder.Folder, error) {
	cursor, err := s.db.Collection(colFolders).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, unavailable("list folders", err)
	}

	var models []folderModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, unavailable("list folders", err)
	}

	result := make([]*folder.Folder, len(models))
	for i := range models {
		f, err := fromFolderModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = f
	}
	return result, nil
}

func (s *Store) TouchFolder(ctx context.Context, folderID id.FolderID, at time.Time) error {
	res, err := s.db.Collection(colFolders).UpdateOne(ctx,
		bson.M{"_id": folderID.String()},
		bson.M{"$set": bson.M{"last_accessed": at.UTC()}})
	if err != nil {
		return unavailable("touch folder", err)
	}
	if res.MatchedCount == 0 {
		return costledger.ErrFolderNotFound
	}
	return nil
}

func (s *Store) DeleteFolder(ctx context.Context, folderID id.FolderID) error {
	res, err := s.db.Collection(colFolders).DeleteOne(ctx, bson.M{"_id": folderID.String()})
	if err != nil {
		return unavailable("delete folder", err)
	}
	if res.DeletedCount == 0 {
		return costledger.ErrFolderNotFound
	}

	// Cascade. The folder document is already gone, so no new records can
	// reference it through the facade; any concurrently-created stragglers
	// are removed here.
	if _, err := s.db.Collection(colRecords).DeleteMany(ctx, bson.M{"folder_id": folderID.String()}); err != nil {
		return unavailable("delete folder records", err)
	}
	return nil
}

// ==================== Record Store ====================

func (s *Store) CreateRecord(ctx context.Context, r *record.Record) error {
	if err := s.db.Collection(colFolders).FindOne(ctx, bson.M{"_id": r.FolderID.String()}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return costledger.ErrFolderNotFound
		}
		return unavailable("create record", err)
	}

	// Seed aggregates from the embedded transactions so record and first
	// transaction land fully folded in one insert.
	received, paid, balance := r.Refold()
	r.TotalReceived = received
	r.TotalPaid = paid
	r.CurrentBalance = balance
	for _, txn := range r.Transactions {
		txn.BalanceAfter = balance
	}

	if _, err := s.db.Collection(colRecords).InsertOne(ctx, toRecordModel(r)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return costledger.ErrAlreadyExists
		}
		return unavailable("create record", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	var m recordModel
	err := s.db.Collection(colRecords).FindOne(ctx, bson.M{"_id": recordID.String()}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, costledger.ErrRecordNotFound
		}
		return nil, unavailable("get record", err)
	}
	return fromRecordModel(&m)
}

func (s *Store) ListRecords(ctx context.Context, folderID id.FolderID) ([]*record.Record, error) {
	cursor, err := s.db.Collection(colRecords).Find(ctx,
		bson.M{"folder_id": folderID.String()},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, unavailable("list records", err)
	}

	var models []recordModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, unavailable("list records", err)
	}

	result := make([]*record.Record, len(models))
	for i := range models {
		r, err := fromRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) UpdateRecordMetadata(ctx context.Context, recordID id.RecordID, meta record.Metadata) error {
	set := bson.M{
		"reason":       meta.Reason,
		"total_amount": meta.TotalAmount.Amount,
		"category":     string(meta.Category),
		"type":         string(meta.Type),
		"description":  meta.Description,
		"updated_at":   time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if meta.DueDate != nil {
		set["due_date"] = meta.DueDate.UTC()
	} else {
		update["$unset"] = bson.M{"due_date": ""}
	}

	res, err := s.db.Collection(colRecords).UpdateOne(ctx, bson.M{"_id": recordID.String()}, update)
	if err != nil {
		return unavailable("update record metadata", err)
	}
	if res.MatchedCount == 0 {
		return costledger.ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, recordID id.RecordID) error {
	res, err := s.db.Collection(colRecords).DeleteOne(ctx, bson.M{"_id": recordID.String()})
	if err != nil {
		return unavailable("delete record", err)
	}
	if res.DeletedCount == 0 {
		return costledger.ErrRecordNotFound
	}
	return nil
}

// ==================== Transaction Store ====================

// aggregateStages builds the pipeline stages that shift the aggregate
// fields by a delta and re-derive the balance from the shifted totals.
func aggregateStages(d record.Delta) []bson.D {
	return []bson.D{
		{{Key: "$set", Value: bson.D{
			{Key: "total_received", Value: bson.D{{Key: "$add", Value: bson.A{"$total_received", d.Received.Amount}}}},
			{Key: "total_paid", Value: bson.D{{Key: "$add", Value: bson.A{"$total_paid", d.Paid.Amount}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "current_balance", Value: bson.D{{Key: "$subtract", Value: bson.A{"$total_received", "$total_paid"}}}},
		}}},
	}
}

// transactionStage embeds the transaction document, stamping balance_after
// from the balance computed in the preceding stages. Strings in a pipeline
// $set are aggregation expressions, so caller-supplied text is wrapped in
// $literal to keep a value like "$100 deposit" from resolving as a field
// path.
func transactionStage(field string, txn *record.Transaction, now time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: field, Value: bson.D{
			{Key: "id", Value: txn.ID.String()},
			{Key: "date", Value: txn.Date},
			{Key: "amount", Value: txn.Amount.Amount},
			{Key: "type", Value: string(txn.Type)},
			{Key: "description", Value: bson.D{{Key: "$literal", Value: txn.Description}}},
			{Key: "employee", Value: bson.D{{Key: "$literal", Value: txn.Employee}}},
			{Key: "balance_after", Value: "$current_balance"},
		}},
		{Key: "updated_at", Value: now},
	}}}
}

func (s *Store) AppendTransaction(ctx context.Context, recordID id.RecordID, txn *record.Transaction) error {
	field := "transactions." + txn.ID.String()

	pipeline := mongo.Pipeline(aggregateStages(txn.Contribution()))
	pipeline = append(pipeline, transactionStage(field, txn, time.Now().UTC()))

	// Matching on the transaction's absence makes the append idempotent:
	// retrying with the same pre-allocated id after an ambiguous failure
	// finds the transaction already present and falls through below.
	filter := bson.M{"_id": recordID.String(), field: bson.M{"$exists": false}}

	var m recordModel
	err := s.db.Collection(colRecords).FindOneAndUpdate(ctx, filter, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return unavailable("append transaction", err)
		}
		// No match: either the record is gone or the write already landed.
		existing, getErr := s.GetTransaction(ctx, recordID, txn.ID)
		if getErr != nil {
			if errors.Is(getErr, costledger.ErrTransactionNotFound) {
				return costledger.ErrRecordNotFound
			}
			return getErr
		}
		txn.BalanceAfter = existing.BalanceAfter
		return nil
	}

	txn.BalanceAfter = moneyFromModel(&m, m.CurrentBalance)
	return nil
}

func (s *Store) ReplaceTransaction(ctx context.Context, recordID id.RecordID, txn *record.Transaction, prev record.Snapshot) error {
	field := "transactions." + txn.ID.String()

	pipeline := mongo.Pipeline(aggregateStages(txn.Contribution().Sub(prev.Contribution())))
	pipeline = append(pipeline, transactionStage(field, txn, time.Now().UTC()))

	// The guard filter pins the stored transaction to the snapshot the
	// caller computed its delta from.
	filter := bson.M{
		"_id":            recordID.String(),
		field + ".amount": prev.Amount.Amount,
		field + ".type":   string(prev.Type),
	}

	var m recordModel
	err := s.db.Collection(colRecords).FindOneAndUpdate(ctx, filter, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return unavailable("replace transaction", err)
		}
		return s.classifyGuardMiss(ctx, recordID, txn.ID)
	}

	txn.BalanceAfter = moneyFromModel(&m, m.CurrentBalance)
	return nil
}

func (s *Store) RemoveTransaction(ctx context.Context, recordID id.RecordID, txnID id.TransactionID, prev record.Snapshot) error {
	field := "transactions." + txnID.String()

	pipeline := mongo.Pipeline(aggregateStages(prev.Contribution().Negate()))
	pipeline = append(pipeline,
		bson.D{{Key: "$unset", Value: field}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}}},
	)

	filter := bson.M{
		"_id":            recordID.String(),
		field + ".amount": prev.Amount.Amount,
		field + ".type":   string(prev.Type),
	}

	res, err := s.db.Collection(colRecords).UpdateOne(ctx, filter, pipeline)
	if err != nil {
		return unavailable("remove transaction", err)
	}
	if res.MatchedCount == 0 {
		return s.classifyGuardMiss(ctx, recordID, txnID)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, recordID id.RecordID, txnID id.TransactionID) (*record.Transaction, error) {
	r, err := s.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	txn := r.Transaction(txnID)
	if txn == nil {
		return nil, costledger.ErrTransactionNotFound
	}
	return txn, nil
}

func (s *Store) ReconcileRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	txnArray := bson.D{{Key: "$objectToArray", Value: bson.D{
		{Key: "$ifNull", Value: bson.A{"$transactions", bson.D{}}},
	}}}

	sumOf := func(txnType record.TxnType) bson.D {
		return bson.D{{Key: "$sum", Value: bson.D{{Key: "$map", Value: bson.D{
			{Key: "input", Value: bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: txnArray},
				{Key: "as", Value: "t"},
				{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$t.v.type", string(txnType)}}}},
			}}}},
			{Key: "as", Value: "t"},
			{Key: "in", Value: "$$t.v.amount"},
		}}}}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "total_received", Value: sumOf(record.TxnReceived)},
			{Key: "total_paid", Value: sumOf(record.TxnPaid)},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "current_balance", Value: bson.D{{Key: "$subtract", Value: bson.A{"$total_received", "$total_paid"}}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}

	var m recordModel
	err := s.db.Collection(colRecords).FindOneAndUpdate(ctx,
		bson.M{"_id": recordID.String()}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, costledger.ErrRecordNotFound
		}
		return nil, unavailable("reconcile record", err)
	}
	return fromRecordModel(&m)
}

// classifyGuardMiss distinguishes why a guarded transaction write matched
// nothing: missing record, missing transaction, or a concurrent edit that
// broke the snapshot guard.
func (s *Store) classifyGuardMiss(ctx context.Context, recordID id.RecordID, txnID id.TransactionID) error {
	if _, err := s.GetTransaction(ctx, recordID, txnID); err != nil {
		return err
	}
	return costledger.ErrConcurrentModification
}

func moneyFromModel(m *recordModel, amount int64) types.Money {
	return types.Money{Amount: amount, Currency: m.Currency}
}

// unavailable wraps a driver failure so callers can classify it with
// errors.Is(err, ErrStoreUnavailable).
func unavailable(op string, err error) error {
	return fmt.Errorf("costledger/mongo: %s: %v: %w", op, err, costledger.ErrStoreUnavailable)
}
