package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
)

// ErrTransactionsUnsupported is returned by Connect for a standalone server.
// Settlement writes balances and processed flags in one multi-document
// transaction, which needs a replica set or a sharded cluster.
var ErrTransactionsUnsupported = errors.New("mongo deployment does not support transactions: a replica set or sharded cluster is required")

// Collection is the subset of *mongo.Collection the store uses.
type Collection interface {
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// CollectionProvider hands out collections by name and runs transactions.
type CollectionProvider interface {
	Collection(name string) Collection
	// WithTransaction runs fn in one multi-document transaction. Collection
	// calls made with the ctx passed to fn commit together or not at all.
	// fn may be retried on transient errors, so it must be idempotent.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DatabaseProvider adapts a *mongo.Client and one of its databases to
// CollectionProvider.
type DatabaseProvider struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDatabaseProvider(client *mongo.Client, database string) *DatabaseProvider {
	return &DatabaseProvider{client: client, db: client.Database(database)}
}

func (p *DatabaseProvider) Collection(name string) Collection {
	return p.db.Collection(name)
}

func (p *DatabaseProvider) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := p.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// helloReply holds the fields of the hello command that tell a standalone
// server apart from a replica set member or a mongos router.
type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

func (h helloReply) supportsTransactions() bool {
	return h.SetName != "" || h.Msg == "isdbgrid"
}

// Connect establishes and pings a connection, checks that the deployment
// supports transactions, then returns a store on the named database.
// Closing the store disconnects the client.
func Connect(ctx context.Context, uri, database string) (*MongoBankingStore, error) {
	logger := logging.FromContext(ctx)
	logger.WithField("database", database).Debug("connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	var hello helloReply
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to inspect MongoDB topology: %w", err)
	}
	if !hello.supportsTransactions() {
		_ = client.Disconnect(ctx)
		return nil, ErrTransactionsUnsupported
	}

	logger.WithField("replica_set", hello.SetName).Info("connected to MongoDB")
	store := NewMongoBankingStore(NewDatabaseProvider(client, database))
	store.disconnect = client.Disconnect
	return store, nil
}
