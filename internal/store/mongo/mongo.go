// Package mongo implements store.Store on MongoDB. Each record type lives
// in its own collection keyed by its natural id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finance/internal/core"
	"finance/internal/store"
)

const (
	collTransactions = "transactions"
	collBudgets      = "budgets"
	collPots         = "pots"
	collUsers        = "users"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, pings the server and makes sure the indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the secondary and unique indexes. It is safe to call repeatedly.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	caseInsensitive := &options.Collation{Locale: "en", Strength: 2}
	indexes := map[string][]mongo.IndexModel{
		collTransactions: {
			{Keys: bson.D{{Key: "category", Value: 1}}, Options: options.Index().SetName("idx_transactions_category")},
			{Keys: bson.D{{Key: "date", Value: -1}}, Options: options.Index().SetName("idx_transactions_date")},
		},
		collPots: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("uniq_pots_name").SetUnique(true).SetCollation(caseInsensitive)},
		},
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_users_email").SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type transactionDoc struct {
	ID          string    `bson:"_id"`
	Avatar      string    `bson:"avatar"`
	Name        string    `bson:"name"`
	Category    string    `bson:"category"`
	Date        time.Time `bson:"date"`
	AmountCents int64     `bson:"amount_cents"`
	Recurring   bool      `bson:"recurring"`
}

type budgetDoc struct {
	Category       string   `bson:"_id"`
	MaximumCents   int64    `bson:"maximum_cents"`
	SpentCents     int64    `bson:"spent_cents"`
	RemainingCents int64    `bson:"remaining_cents"`
	Theme          string   `bson:"theme"`
	Transactions   []string `bson:"transactions"`
}

type potDoc struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name"`
	TargetCents int64  `bson:"target_cents"`
	TotalCents  int64  `bson:"total_cents"`
	Theme       string `bson:"theme"`
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toTransactionDoc(t core.Transaction) transactionDoc {
	return transactionDoc{
		ID: t.ID, Avatar: t.Avatar, Name: t.Name, Category: string(t.Category),
		Date: t.Date.UTC(), AmountCents: t.Amount.Cents, Recurring: t.Recurring,
	}
}

func (d transactionDoc) toCore() core.Transaction {
	return core.Transaction{
		ID: d.ID, Avatar: d.Avatar, Name: d.Name, Category: core.Category(d.Category),
		Date: d.Date.UTC(), Amount: core.Money{Cents: d.AmountCents}, Recurring: d.Recurring,
	}
}

func toBudgetDoc(b core.Budget) budgetDoc {
	ids := b.Transactions
	if ids == nil {
		ids = []string{}
	}
	return budgetDoc{
		Category: string(b.Category), MaximumCents: b.Maximum.Cents, SpentCents: b.Spent.Cents,
		RemainingCents: b.Remaining.Cents, Theme: string(b.Theme), Transactions: ids,
	}
}

func (d budgetDoc) toCore() core.Budget {
	ids := d.Transactions
	if ids == nil {
		ids = []string{}
	}
	return core.Budget{
		Category: core.Category(d.Category), Maximum: core.Money{Cents: d.MaximumCents},
		Spent: core.Money{Cents: d.SpentCents}, Remaining: core.Money{Cents: d.RemainingCents},
		Theme: core.Theme(d.Theme), Transactions: ids,
	}
}

func toPotDoc(p core.Pot) potDoc {
	return potDoc{ID: p.ID, Name: p.Name, TargetCents: p.Target.Cents, TotalCents: p.Total.Cents, Theme: string(p.Theme)}
}

func (d potDoc) toCore() core.Pot {
	return core.Pot{ID: d.ID, Name: d.Name, Target: core.Money{Cents: d.TargetCents}, Total: core.Money{Cents: d.TotalCents}, Theme: core.Theme(d.Theme)}
}

func toUserDoc(u core.User) userDoc {
	return userDoc{ID: u.ID, Name: u.Name, Email: core.NormalizeEmail(u.Email), PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt.UTC()}
}

func (d userDoc) toCore() core.User {
	return core.User{ID: d.ID, Name: d.Name, Email: d.Email, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt.UTC()}
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	var docs []transactionDoc
	if err := findAll(ctx, s.db.Collection(collTransactions), bson.D{}, &docs, opts); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

// InsertTransactions emulates an all-or-nothing batch without multi-document
// transactions: it rejects known ids up front and removes the inserted
// prefix when an ordered insert fails midway.
func (s *Store) InsertTransactions(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	coll := s.db.Collection(collTransactions)
	ids := make([]string, len(txs))
	docs := make([]any, len(txs))
	seen := make(map[string]struct{}, len(txs))
	for i, t := range txs {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("transaction %s repeated in batch: %w", t.ID, store.ErrConflict)
		}
		seen[t.ID] = struct{}{}
		ids[i] = t.ID
		docs[i] = toTransactionDoc(t)
	}

	n, err := coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return fmt.Errorf("check transaction ids: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%d transaction ids already exist: %w", n, store.ErrConflict)
	}

	_, err = coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}
	inserted := 0
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		inserted = bwe.WriteErrors[0].Index
	}
	if inserted > 0 {
		if _, derr := coll.DeleteMany(context.WithoutCancel(ctx), bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids[:inserted]}}}}); derr != nil {
			return fmt.Errorf("insert transactions: %w (rollback failed: %v)", classify(err), derr)
		}
	}
	return fmt.Errorf("insert transactions: %w", classify(err))
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var docs []budgetDoc
	if err := findAll(ctx, s.db.Collection(collBudgets), bson.D{}, &docs, options.Find()); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) GetBudget(ctx context.Context, category core.Category) (core.Budget, error) {
	var d budgetDoc
	err := s.db.Collection(collBudgets).FindOne(ctx, bson.D{{Key: "_id", Value: string(category)}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", category, store.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %s: %w", category, err)
	}
	return d.toCore(), nil
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) error {
	if _, err := s.db.Collection(collBudgets).InsertOne(ctx, toBudgetDoc(b)); err != nil {
		return fmt.Errorf("create budget %s: %w", b.Category, classify(err))
	}
	return nil
}

func (s *Store) UpdateBudget(ctx context.Context, category core.Category, b core.Budget) error {
	coll := s.db.Collection(collBudgets)
	if b.Category == category {
		res, err := coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: string(category)}}, toBudgetDoc(b))
		if err != nil {
			return fmt.Errorf("update budget %s: %w", category, err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("budget %s: %w", category, store.ErrNotFound)
		}
		return nil
	}

	// The category is the document key, so a rename is insert-new then delete-old.
	if _, err := s.GetBudget(ctx, category); err != nil {
		return err
	}
	if err := s.CreateBudget(ctx, b); err != nil {
		return err
	}
	if _, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: string(category)}}); err != nil {
		return fmt.Errorf("remove renamed budget %s: %w", category, err)
	}
	return nil
}

func (s *Store) SaveBudgetTotals(ctx context.Context, budgets []core.Budget) error {
	if len(budgets) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(budgets))
	for _, b := range budgets {
		d := toBudgetDoc(b)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: d.Category}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "spent_cents", Value: d.SpentCents},
				{Key: "remaining_cents", Value: d.RemainingCents},
				{Key: "transactions", Value: d.Transactions},
			}}}))
	}
	if _, err := s.db.Collection(collBudgets).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("save budget totals: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, category core.Category) error {
	res, err := s.db.Collection(collBudgets).DeleteOne(ctx, bson.D{{Key: "_id", Value: string(category)}})
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", category, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("budget %s: %w", category, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListPots(ctx context.Context) ([]core.Pot, error) {
	var docs []potDoc
	if err := findAll(ctx, s.db.Collection(collPots), bson.D{}, &docs, options.Find()); err != nil {
		return nil, fmt.Errorf("list pots: %w", err)
	}
	out := make([]core.Pot, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) GetPot(ctx context.Context, id string) (core.Pot, error) {
	var d potDoc
	err := s.db.Collection(collPots).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Pot{}, fmt.Errorf("pot %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Pot{}, fmt.Errorf("get pot %s: %w", id, err)
	}
	return d.toCore(), nil
}

func (s *Store) CreatePot(ctx context.Context, p core.Pot) error {
	if _, err := s.db.Collection(collPots).InsertOne(ctx, toPotDoc(p)); err != nil {
		return fmt.Errorf("create pot %s: %w", p.Name, classify(err))
	}
	return nil
}

func (s *Store) UpdatePot(ctx context.Context, p core.Pot) error {
	res, err := s.db.Collection(collPots).ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, toPotDoc(p))
	if err != nil {
		return fmt.Errorf("update pot %s: %w", p.ID, classify(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("pot %s: %w", p.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeletePot(ctx context.Context, id string) error {
	res, err := s.db.Collection(collPots).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete pot %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("pot %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u core.User) error {
	if _, err := s.db.Collection(collUsers).InsertOne(ctx, toUserDoc(u)); err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, classify(err))
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.getUser(ctx, bson.D{{Key: "email", Value: core.NormalizeEmail(email)}}, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return s.getUser(ctx, bson.D{{Key: "_id", Value: id}}, id)
}

func (s *Store) getUser(ctx context.Context, filter bson.D, key string) (core.User, error) {
	var d userDoc
	err := s.db.Collection(collUsers).FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.User{}, fmt.Errorf("user %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", key, err)
	}
	return d.toCore(), nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.D, out *[]T, opts *options.FindOptions) error {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, out); err != nil {
		return err
	}
	if *out == nil {
		*out = []T{}
	}
	return nil
}

func classify(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}
