package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
)

const (
	PeopleCollection       = "people"
	AccountsCollection     = "bank_accounts"
	TransactionsCollection = "bank_transactions"
)

// personDoc stores the recorded friend direction inline as an id list.
type personDoc struct {
	ID        int64                `bson:"_id"`
	Name      string               `bson:"name"`
	Email     string               `bson:"email"`
	NetWorth  primitive.Decimal128 `bson:"net_worth"`
	MaxBorrow primitive.Decimal128 `bson:"max_borrow"`
	HasFriend []int64              `bson:"has_friend,omitempty"`
}

type accountDoc struct {
	IBAN    string               `bson:"_id"`
	Balance primitive.Decimal128 `bson:"balance"`
	OwnerID int64                `bson:"owner_id"`
}

type transactionDoc struct {
	ID         int64                `bson:"_id"`
	Amount     primitive.Decimal128 `bson:"amount"`
	Processed  bool                 `bson:"processed"`
	SenderIBAN string               `bson:"sender_iban"`
	TargetIBAN string               `bson:"target_iban"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert decimal128 %s: %w", d, err)
	}
	return v, nil
}

func (d personDoc) model() (models.Person, error) {
	netWorth, err := fromDecimal128(d.NetWorth)
	if err != nil {
		return models.Person{}, err
	}
	maxBorrow, err := fromDecimal128(d.MaxBorrow)
	if err != nil {
		return models.Person{}, err
	}
	return models.Person{ID: d.ID, Name: d.Name, Email: d.Email, NetWorth: netWorth, MaxBorrow: maxBorrow}, nil
}

func (d accountDoc) model() (models.BankAccount, error) {
	balance, err := fromDecimal128(d.Balance)
	if err != nil {
		return models.BankAccount{}, err
	}
	return models.BankAccount{IBAN: d.IBAN, Balance: balance, OwnerID: d.OwnerID}, nil
}

func (d transactionDoc) model() (models.Transaction, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		ID:         d.ID,
		Amount:     amount,
		Processed:  d.Processed,
		SenderIBAN: d.SenderIBAN,
		TargetIBAN: d.TargetIBAN,
	}, nil
}

// MongoBankingStore implements interfaces.Store on three collections.
// Every save runs inside one provider transaction.
type MongoBankingStore struct {
	provider   CollectionProvider
	disconnect func(ctx context.Context) error
}

func NewMongoBankingStore(provider CollectionProvider) *MongoBankingStore {
	return &MongoBankingStore{provider: provider}
}

func (s *MongoBankingStore) FindAccountByIBAN(ctx context.Context, iban string) (models.BankAccount, error) {
	var doc accountDoc
	err := s.provider.Collection(AccountsCollection).FindOne(ctx, bson.M{"_id": iban}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.BankAccount{}, models.ErrNotFound
	}
	if err != nil {
		return models.BankAccount{}, fmt.Errorf("find account %s: %w", iban, err)
	}
	return doc.model()
}

func (s *MongoBankingStore) FindAccountsByOwner(ctx context.Context, personID int64) ([]models.BankAccount, error) {
	return s.findAccounts(ctx, bson.M{"owner_id": personID})
}

func (s *MongoBankingStore) ListAccounts(ctx context.Context) ([]models.BankAccount, error) {
	return s.findAccounts(ctx, bson.M{})
}

func (s *MongoBankingStore) findAccounts(ctx context.Context, filter bson.M) ([]models.BankAccount, error) {
	var docs []accountDoc
	if err := s.findAll(ctx, AccountsCollection, filter, &docs); err != nil {
		return nil, err
	}

	accounts := make([]models.BankAccount, 0, len(docs))
	for _, d := range docs {
		a, err := d.model()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (s *MongoBankingStore) FindAllPeopleWithAccountsAndFriends(ctx context.Context) ([]models.Person, error) {
	var docs []personDoc
	if err := s.findAll(ctx, PeopleCollection, bson.M{}, &docs); err != nil {
		return nil, err
	}

	people := make([]models.Person, 0, len(docs))
	var edges []models.FriendEdge
	for _, d := range docs {
		p, err := d.model()
		if err != nil {
			return nil, err
		}
		people = append(people, p)
		for _, friendID := range d.HasFriend {
			edges = append(edges, models.FriendEdge{PersonID: d.ID, FriendID: friendID})
		}
	}

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return models.LinkPeople(people, accounts, edges), nil
}

// FindUnprocessedTransactionsWithSender resolves senders with a second query.
// Transactions whose sender account is missing are not selected.
func (s *MongoBankingStore) FindUnprocessedTransactionsWithSender(ctx context.Context) ([]models.Transaction, error) {
	txs, err := s.findTransactions(ctx, bson.M{"processed": false})
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return txs, nil
	}

	ibans := make([]string, 0, len(txs))
	for _, tx := range txs {
		ibans = append(ibans, tx.SenderIBAN)
	}
	senders, err := s.findAccounts(ctx, bson.M{"_id": bson.M{"$in": ibans}})
	if err != nil {
		return nil, err
	}
	byIBAN := make(map[string]models.BankAccount, len(senders))
	for _, a := range senders {
		byIBAN[a.IBAN] = a
	}

	selected := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		sender, ok := byIBAN[tx.SenderIBAN]
		if !ok {
			continue
		}
		tx.SenderAccount = &sender
		selected = append(selected, tx)
	}
	return selected, nil
}

// SaveSettlement writes balances and processed flags in one multi-document
// transaction.
func (s *MongoBankingStore) SaveSettlement(ctx context.Context, accounts []models.BankAccount, transactions []models.Transaction) error {
	accountWrites := make([]mongo.WriteModel, 0, len(accounts))
	for _, a := range accounts {
		balance, err := toDecimal128(a.Balance)
		if err != nil {
			return err
		}
		accountWrites = append(accountWrites, setByID(a.IBAN, bson.M{"balance": balance}))
	}

	txWrites := make([]mongo.WriteModel, 0, len(transactions))
	for _, tx := range transactions {
		txWrites = append(txWrites, setByID(tx.ID, bson.M{"processed": tx.Processed}))
	}

	return s.provider.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.bulkWrite(ctx, AccountsCollection, accountWrites); err != nil {
			return err
		}
		return s.bulkWrite(ctx, TransactionsCollection, txWrites)
	})
}

// SaveNetWorth sets net_worth only.
func (s *MongoBankingStore) SaveNetWorth(ctx context.Context, people []models.Person) error {
	return s.savePeopleField(ctx, people, "net_worth", func(p models.Person) decimal.Decimal { return p.NetWorth })
}

// SaveMaxBorrow sets max_borrow only.
func (s *MongoBankingStore) SaveMaxBorrow(ctx context.Context, people []models.Person) error {
	return s.savePeopleField(ctx, people, "max_borrow", func(p models.Person) decimal.Decimal { return p.MaxBorrow })
}

func (s *MongoBankingStore) savePeopleField(ctx context.Context, people []models.Person, field string, value func(models.Person) decimal.Decimal) error {
	writes := make([]mongo.WriteModel, 0, len(people))
	for _, p := range people {
		v, err := toDecimal128(value(p))
		if err != nil {
			return err
		}
		writes = append(writes, setByID(p.ID, bson.M{field: v}))
	}
	if len(writes) == 0 {
		return nil
	}

	return s.provider.WithTransaction(ctx, func(ctx context.Context) error {
		return s.bulkWrite(ctx, PeopleCollection, writes)
	})
}

func setByID(id any, fields bson.M) mongo.WriteModel {
	return mongo.NewUpdateOneModel().
		SetFilter(bson.M{"_id": id}).
		SetUpdate(bson.M{"$set": fields})
}

func (s *MongoBankingStore) bulkWrite(ctx context.Context, collection string, writes []mongo.WriteModel) error {
	if len(writes) == 0 {
		return nil
	}
	_, err := s.provider.Collection(collection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to perform bulk write for collection %s: %w", collection, err)
	}
	return nil
}

func (s *MongoBankingStore) ListPeople(ctx context.Context) ([]models.Person, error) {
	var docs []personDoc
	if err := s.findAll(ctx, PeopleCollection, bson.M{}, &docs); err != nil {
		return nil, err
	}

	people := make([]models.Person, 0, len(docs))
	for _, d := range docs {
		p, err := d.model()
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, nil
}

func (s *MongoBankingStore) FindPerson(ctx context.Context, id int64) (models.Person, error) {
	var doc personDoc
	err := s.provider.Collection(PeopleCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Person{}, models.ErrNotFound
	}
	if err != nil {
		return models.Person{}, fmt.Errorf("find person %d: %w", id, err)
	}
	return doc.model()
}

func (s *MongoBankingStore) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.findTransactions(ctx, bson.M{})
}

func (s *MongoBankingStore) FindTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	var doc transactionDoc
	err := s.provider.Collection(TransactionsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("find transaction %d: %w", id, err)
	}
	return doc.model()
}

func (s *MongoBankingStore) FindTransactionsByAccount(ctx context.Context, iban string) ([]models.Transaction, error) {
	return s.findTransactions(ctx, bson.M{"$or": bson.A{
		bson.M{"sender_iban": iban},
		bson.M{"target_iban": iban},
	}})
}

func (s *MongoBankingStore) findTransactions(ctx context.Context, filter bson.M) ([]models.Transaction, error) {
	var docs []transactionDoc
	if err := s.findAll(ctx, TransactionsCollection, filter, &docs); err != nil {
		return nil, err
	}

	txs := make([]models.Transaction, 0, len(docs))
	for _, d := range docs {
		tx, err := d.model()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// findAll runs filter sorted by _id and decodes every document into out.
func (s *MongoBankingStore) findAll(ctx context.Context, collection string, filter bson.M, out any) error {
	cursor, err := s.provider.Collection(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("find in %s: %w", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func (s *MongoBankingStore) Close(ctx context.Context) error {
	if s.disconnect == nil {
		return nil
	}
	return s.disconnect(ctx)
}

var _ interfaces.Store = (*MongoBankingStore)(nil)
