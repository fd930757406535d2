package database

import (
	"context"
	"fmt"
	"time"

	"mercadito-api/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client *mongo.Client

	UserCollection    *mongo.Collection
	ProductCollection *mongo.Collection
	CartCollection    *mongo.Collection
	OrderCollection   *mongo.Collection
	PaymentCollection *mongo.Collection

	transactions bool
}

// Connect opens the client and pings the primary. With transactions set,
// Payment and Order writes made through Tx share one session transaction,
// which requires a replica set.
func Connect(ctx context.Context, uri, dbName string, transactions bool) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(dbName)
	return &DB{
		Client:            client,
		UserCollection:    db.Collection("users"),
		ProductCollection: db.Collection("productos"),
		CartCollection:    db.Collection("carritos"),
		OrderCollection:   db.Collection("ordenes"),
		PaymentCollection: db.Collection("pagos"),
		transactions:      transactions,
	}, nil
}

func (d *DB) EnsureIndexes(ctx context.Context) error {
	if _, err := d.UserCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := d.CartCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "usuario_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("carts index: %w", err)
	}
	for _, coll := range []*mongo.Collection{d.OrderCollection, d.PaymentCollection} {
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "usuario_id", Value: 1}, {Key: "createdAt", Value: -1}},
		}); err != nil {
			return fmt.Errorf("%s index: %w", coll.Name(), err)
		}
	}
	_, err := d.ProductCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "categoria", Value: 1}},
	})
	return err
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Client.Ping(ctx, nil)
}

func (d *DB) Disconnect(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

func (d *DB) Stores() store.Stores {
	return store.Stores{
		Users:    &UserRepository{coll: d.UserCollection},
		Products: &ProductRepository{coll: d.ProductCollection},
		Carts:    &CartRepository{coll: d.CartCollection},
		Orders:   &OrderRepository{coll: d.OrderCollection},
		Payments: &PaymentRepository{coll: d.PaymentCollection},
		Tx:       &Tx{client: d.Client, enabled: d.transactions},
	}
}

// Tx wraps fn in a session transaction when enabled. The driver binds the
// session to ctx, so repository calls made with that ctx join it.
type Tx struct {
	client  *mongo.Client
	enabled bool
}

func (t *Tx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	// Empty array instead of null in JSON.
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

func insert(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	_, err := coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func replace(ctx context.Context, coll *mongo.Collection, id string, doc interface{}, upsert bool) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(upsert))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return err
	}
	if !upsert && res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func remove(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
