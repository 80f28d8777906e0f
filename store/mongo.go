package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/LovationAdmin/family-budget-api/models"
)

const (
	usersCollection        = "users"
	sessionsCollection     = "sessions"
	familiesCollection     = "families"
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
	categoriesCollection   = "categories"
)

// MongoStore is the document database backend. The client is created once at
// startup and owned by the store from then on.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) col(name string) *mongo.Collection { return s.db.Collection(name) }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "families", Value: 1}}},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "refresh_token", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "family_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		budgetsCollection: {
			{Keys: bson.D{{Key: "owner_user_id", Value: 1}}},
			{Keys: bson.D{{Key: "family_id", Value: 1}}},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "is_default", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "family_id", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := s.col(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Documents. Each entity maps to exactly one document type through one pair
// of conversion functions; the public id is stored as _id.

type userDoc struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"password_hash"`
	ActiveFamilyID string    `bson:"active_family_id"`
	Families       []string  `bson:"families"`
	TOTPSecret     string    `bson:"totp_secret"`
	TOTPEnabled    bool      `bson:"totp_enabled"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func userToDoc(u *models.User) userDoc {
	families := u.Families
	if families == nil {
		families = []string{}
	}
	return userDoc{
		ID: u.ID, Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash,
		ActiveFamilyID: u.ActiveFamilyID, Families: families,
		TOTPSecret: u.TOTPSecret, TOTPEnabled: u.TOTPEnabled,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (d userDoc) model() models.User {
	return models.User{
		ID: d.ID, Name: d.Name, Email: d.Email, PasswordHash: d.PasswordHash,
		ActiveFamilyID: d.ActiveFamilyID, Families: d.Families,
		TOTPSecret: d.TOTPSecret, TOTPEnabled: d.TOTPEnabled,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type sessionDoc struct {
	ID           string    `bson:"_id"`
	UserID       string    `bson:"user_id"`
	RefreshToken string    `bson:"refresh_token"`
	ExpiresAt    time.Time `bson:"expires_at"`
	CreatedAt    time.Time `bson:"created_at"`
}

type familyDoc struct {
	ID        string            `bson:"_id"`
	Name      string            `bson:"name"`
	Members   []string          `bson:"members"`
	Roles     map[string]string `bson:"roles"`
	BudgetCap *bson.Decimal128  `bson:"budget_cap,omitempty"`
	CreatedBy string            `bson:"created_by"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func familyToDoc(f *models.Family) (familyDoc, error) {
	members := f.Members
	if members == nil {
		members = []string{}
	}
	roles := make(map[string]string, len(f.Roles))
	for id, r := range f.Roles {
		roles[id] = string(r)
	}
	doc := familyDoc{
		ID: f.ID, Name: f.Name, Members: members, Roles: roles, CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt,
	}
	if f.BudgetCap != nil {
		v, err := toDecimal128(*f.BudgetCap)
		if err != nil {
			return doc, err
		}
		doc.BudgetCap = &v
	}
	return doc, nil
}

func (d familyDoc) model() (models.Family, error) {
	f := models.Family{
		ID: d.ID, Name: d.Name, Members: d.Members, CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	if len(d.Roles) > 0 {
		f.Roles = make(map[string]models.Role, len(d.Roles))
		for id, r := range d.Roles {
			f.Roles[id] = models.Role(r)
		}
	}
	if d.BudgetCap != nil {
		v, err := fromDecimal128(*d.BudgetCap)
		if err != nil {
			return f, err
		}
		f.BudgetCap = &v
	}
	return f, nil
}

type transactionDoc struct {
	ID        string          `bson:"_id"`
	Amount    bson.Decimal128 `bson:"amount"`
	Type      string          `bson:"type"`
	Category  string          `bson:"category"`
	UserID    string          `bson:"user_id"`
	FamilyID  string          `bson:"family_id"`
	Note      string          `bson:"note"`
	Timestamp time.Time       `bson:"timestamp"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

func transactionToDoc(t *models.Transaction) (transactionDoc, error) {
	amount, err := toDecimal128(t.Amount)
	if err != nil {
		return transactionDoc{}, err
	}
	return transactionDoc{
		ID: t.ID, Amount: amount, Type: string(t.Type), Category: t.Category,
		UserID: t.UserID, FamilyID: t.FamilyID, Note: t.Note, Timestamp: t.Timestamp,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}, nil
}

func (d transactionDoc) model() (models.Transaction, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		ID: d.ID, Amount: amount, Type: models.TransactionType(d.Type), Category: d.Category,
		UserID: d.UserID, FamilyID: d.FamilyID, Note: d.Note, Timestamp: d.Timestamp,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

type budgetDoc struct {
	ID           string          `bson:"_id"`
	Label        string          `bson:"label"`
	Kind         string          `bson:"kind"`
	Description  string          `bson:"description"`
	TargetAmount bson.Decimal128 `bson:"target_amount"`
	StartDate    *time.Time      `bson:"start_date,omitempty"`
	EndDate      *time.Time      `bson:"end_date,omitempty"`
	OwnerUserID  string          `bson:"owner_user_id"`
	FamilyID     string          `bson:"family_id"`
	IsCustom     bool            `bson:"is_custom"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
}

func budgetToDoc(b *models.Budget) (budgetDoc, error) {
	target, err := toDecimal128(b.TargetAmount)
	if err != nil {
		return budgetDoc{}, err
	}
	return budgetDoc{
		ID: b.ID, Label: b.Label, Kind: string(b.Kind), Description: b.Description,
		TargetAmount: target, StartDate: b.StartDate, EndDate: b.EndDate,
		OwnerUserID: b.OwnerUserID, FamilyID: b.FamilyID, IsCustom: b.IsCustom,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}, nil
}

func (d budgetDoc) model() (models.Budget, error) {
	target, err := fromDecimal128(d.TargetAmount)
	if err != nil {
		return models.Budget{}, err
	}
	return models.Budget{
		ID: d.ID, Label: d.Label, Kind: models.PeriodKind(d.Kind), Description: d.Description,
		TargetAmount: target, StartDate: d.StartDate, EndDate: d.EndDate,
		OwnerUserID: d.OwnerUserID, FamilyID: d.FamilyID, IsCustom: d.IsCustom,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

type categoryDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	MainCategory string    `bson:"main_category"`
	IsDefault    bool      `bson:"is_default"`
	UserID       string    `bson:"user_id"`
	FamilyID     string    `bson:"family_id"`
	CreatedAt    time.Time `bson:"created_at"`
}

func categoryToDoc(c *models.Category) categoryDoc {
	return categoryDoc{
		ID: c.ID, Name: c.Name, MainCategory: string(c.MainCategory), IsDefault: c.IsDefault,
		UserID: c.UserID, FamilyID: c.FamilyID, CreatedAt: c.CreatedAt,
	}
}

func (d categoryDoc) model() models.Category {
	return models.Category{
		ID: d.ID, Name: d.Name, MainCategory: models.MainCategory(d.MainCategory), IsDefault: d.IsDefault,
		UserID: d.UserID, FamilyID: d.FamilyID, CreatedAt: d.CreatedAt,
	}
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v.String(), err)
	}
	return d, nil
}

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func mapReadErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// replaceByID swaps the whole document and reports ErrNotFound when nothing matched.
func (s *MongoStore) replaceByID(ctx context.Context, collection, id string, doc any) error {
	res, err := s.col(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) deleteByID(ctx context.Context, collection, id string) error {
	res, err := s.col(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Users

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.col(usersCollection).InsertOne(ctx, userToDoc(u))
	return mapWriteErr(err)
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.col(usersCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapReadErr(err)
	}
	u := doc.model()
	return &u, nil
}

func (s *MongoStore) ListUsers(ctx context.Context, ids []string) ([]models.User, error) {
	cur, err := s.col(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, u *models.User) error {
	return s.replaceByID(ctx, usersCollection, u.ID, userToDoc(u))
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, usersCollection, id)
}

// Sessions

func (s *MongoStore) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.col(sessionsCollection).InsertOne(ctx, sessionDoc{
		ID: sess.ID, UserID: sess.UserID, RefreshToken: sess.RefreshToken,
		ExpiresAt: sess.ExpiresAt, CreatedAt: sess.CreatedAt,
	})
	return mapWriteErr(err)
}

func (s *MongoStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var doc sessionDoc
	if err := s.col(sessionsCollection).FindOne(ctx, bson.M{"refresh_token": token}).Decode(&doc); err != nil {
		return nil, mapReadErr(err)
	}
	return &models.Session{
		ID: doc.ID, UserID: doc.UserID, RefreshToken: doc.RefreshToken,
		ExpiresAt: doc.ExpiresAt, CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *MongoStore) DeleteSession(ctx context.Context, id string) error {
	return s.deleteByID(ctx, sessionsCollection, id)
}

func (s *MongoStore) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.col(sessionsCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

func (s *MongoStore) DeleteExpiredSessions(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.col(sessionsCollection).DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": t}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Families

func (s *MongoStore) CreateFamily(ctx context.Context, f *models.Family) error {
	doc, err := familyToDoc(f)
	if err != nil {
		return err
	}
	_, err = s.col(familiesCollection).InsertOne(ctx, doc)
	return mapWriteErr(err)
}

func (s *MongoStore) GetFamily(ctx context.Context, id string) (*models.Family, error) {
	var doc familyDoc
	if err := s.col(familiesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapReadErr(err)
	}
	f, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *MongoStore) ListFamilies(ctx context.Context, ids []string) ([]models.Family, error) {
	cur, err := s.col(familiesCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []familyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Family, 0, len(docs))
	for _, d := range docs {
		f, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *MongoStore) UpdateFamily(ctx context.Context, f *models.Family) error {
	doc, err := familyToDoc(f)
	if err != nil {
		return err
	}
	return s.replaceByID(ctx, familiesCollection, f.ID, doc)
}

// DeleteFamily runs the cascade inside a transaction. Standalone servers
// cannot run transactions; there the same steps run one by one, and since
// the family document goes last a failed delete can be retried to completion.
func (s *MongoStore) DeleteFamily(ctx context.Context, id string) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, s.deleteFamilyCascade(ctx, id)
	})
	if isTransactionUnsupported(err) {
		return s.deleteFamilyCascade(ctx, id)
	}
	return err
}

// deleteFamilyCascade detaches the members first, then drops the family's
// records and finally the family itself. Every step is safe to repeat.
func (s *MongoStore) deleteFamilyCascade(ctx context.Context, id string) error {
	if _, err := s.GetFamily(ctx, id); err != nil {
		return err
	}

	users := s.col(usersCollection)
	if _, err := users.UpdateMany(ctx, bson.M{"active_family_id": id},
		bson.M{"$set": bson.M{"active_family_id": ""}}); err != nil {
		return fmt.Errorf("clear active family: %w", err)
	}
	if _, err := users.UpdateMany(ctx, bson.M{"families": id},
		bson.M{"$pull": bson.M{"families": id}}); err != nil {
		return fmt.Errorf("remove family from users: %w", err)
	}

	for _, name := range []string{transactionsCollection, budgetsCollection, categoriesCollection} {
		if _, err := s.col(name).DeleteMany(ctx, bson.M{"family_id": id}); err != nil {
			return fmt.Errorf("delete family %s: %w", name, err)
		}
	}

	return s.deleteByID(ctx, familiesCollection, id)
}

// isTransactionUnsupported reports the IllegalOperation error a standalone
// mongod returns for transactions.
func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == 20
}

// Transactions

func (s *MongoStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	doc, err := transactionToDoc(t)
	if err != nil {
		return err
	}
	_, err = s.col(transactionsCollection).InsertOne(ctx, doc)
	return mapWriteErr(err)
}

func (s *MongoStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var doc transactionDoc
	if err := s.col(transactionsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapReadErr(err)
	}
	t, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MongoStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	doc, err := transactionToDoc(t)
	if err != nil {
		return err
	}
	return s.replaceByID(ctx, transactionsCollection, t.ID, doc)
}

func (s *MongoStore) DeleteTransaction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, transactionsCollection, id)
}

func transactionQuery(f TransactionFilter) bson.M {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	switch {
	case f.FamilyID != "":
		q["family_id"] = f.FamilyID
	case f.PersonalOnly:
		q["family_id"] = ""
	}
	if f.Type != "" {
		q["type"] = string(f.Type)
	}
	if f.Category != "" {
		q["category"] = bson.Regex{Pattern: "^" + regexp.QuoteMeta(f.Category) + "$", Options: "i"}
	}
	if f.From != nil || f.To != nil {
		ts := bson.M{}
		if f.From != nil {
			ts["$gte"] = *f.From
		}
		if f.To != nil {
			ts["$lte"] = *f.To
		}
		q["timestamp"] = ts
	}
	return q
}

func (s *MongoStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.col(transactionsCollection).Find(ctx, transactionQuery(f), opts)
	if err != nil {
		return nil, err
	}
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(docs))
	for _, d := range docs {
		t, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *MongoStore) DeleteUserTransactions(ctx context.Context, userID string) error {
	_, err := s.col(transactionsCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// Budgets

func (s *MongoStore) CreateBudget(ctx context.Context, b *models.Budget) error {
	doc, err := budgetToDoc(b)
	if err != nil {
		return err
	}
	_, err = s.col(budgetsCollection).InsertOne(ctx, doc)
	return mapWriteErr(err)
}

func (s *MongoStore) GetBudget(ctx context.Context, id string) (*models.Budget, error) {
	var doc budgetDoc
	if err := s.col(budgetsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapReadErr(err)
	}
	b, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *MongoStore) UpdateBudget(ctx context.Context, b *models.Budget) error {
	doc, err := budgetToDoc(b)
	if err != nil {
		return err
	}
	return s.replaceByID(ctx, budgetsCollection, b.ID, doc)
}

func (s *MongoStore) DeleteBudget(ctx context.Context, id string) error {
	return s.deleteByID(ctx, budgetsCollection, id)
}

func (s *MongoStore) ListBudgets(ctx context.Context, f BudgetFilter) ([]models.Budget, error) {
	q := bson.M{}
	if f.OwnerUserID != "" {
		q["owner_user_id"] = f.OwnerUserID
	}
	if f.FamilyID != "" {
		q["family_id"] = f.FamilyID
	}

	cur, err := s.col(budgetsCollection).Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []budgetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Budget, 0, len(docs))
	for _, d := range docs {
		b, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *MongoStore) DeleteUserBudgets(ctx context.Context, userID string) error {
	_, err := s.col(budgetsCollection).DeleteMany(ctx, bson.M{"owner_user_id": userID})
	return err
}

// Categories

func (s *MongoStore) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := s.col(categoriesCollection).InsertOne(ctx, categoryToDoc(c))
	return mapWriteErr(err)
}

func (s *MongoStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var doc categoryDoc
	if err := s.col(categoriesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapReadErr(err)
	}
	c := doc.model()
	return &c, nil
}

func (s *MongoStore) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteByID(ctx, categoriesCollection, id)
}

func (s *MongoStore) ListCategories(ctx context.Context, userID, familyID string) ([]models.Category, error) {
	or := bson.A{bson.M{"is_default": true}}
	if userID != "" {
		or = append(or, bson.M{"user_id": userID})
	}
	if familyID != "" {
		or = append(or, bson.M{"family_id": familyID})
	}

	cur, err := s.col(categoriesCollection).Find(ctx, bson.M{"$or": or},
		options.Find().SetSort(bson.D{{Key: "is_default", Value: -1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *MongoStore) CountDefaultCategories(ctx context.Context) (int, error) {
	n, err := s.col(categoriesCollection).CountDocuments(ctx, bson.M{"is_default": true})
	return int(n), err
}

func (s *MongoStore) DeleteUserCategories(ctx context.Context, userID string) error {
	_, err := s.col(categoriesCollection).DeleteMany(ctx, bson.M{"user_id": userID, "family_id": ""})
	return err
}

var _ Store = (*MongoStore)(nil)
