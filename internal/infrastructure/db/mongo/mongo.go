package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gendalf/services-portal/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers          = "users"
	collectionClients        = "clients"
	collectionServices       = "services"
	collectionTariffs        = "tariffs"
	collectionClientServices = "client_services"
	collectionUserServices   = "user_services"
	collectionUsage          = "usage"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// NewRepositories wires every repository onto db.
func NewRepositories(db *mongo.Database) ports.Repositories {
	return ports.Repositories{
		Users:          NewUserRepository(db),
		Clients:        NewClientRepository(db),
		Services:       NewServiceRepository(db),
		Tariffs:        NewTariffRepository(db),
		ClientServices: NewClientServiceRepository(db),
		UserServices:   NewUserServiceRepository(db),
		Usage:          NewUsageRepository(db),
	}
}

// EnsureIndexes creates the lookup and uniqueness indexes of every collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := func() *options.IndexOptions { return options.Index().SetUnique(true) }
	stringField := func(field string) bson.M { return bson.M{field: bson.M{"$type": "string"}} }

	plan := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique().SetName(indexUsername)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique().SetName(indexEmail).SetPartialFilterExpression(stringField("email"))},
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
		},
		collectionClients: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "tariff_id", Value: 1}}},
		},
		collectionServices: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique()},
		},
		collectionTariffs: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique()},
		},
		collectionClientServices: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "service_id", Value: 1}}},
			{Keys: bson.D{{Key: "service_id", Value: 1}}},
		},
		collectionUserServices: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "client_service_id", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "client_service_id", Value: 1}}},
		},
		collectionUsage: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "usage_date", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "usage_date", Value: 1}}},
			{Keys: bson.D{{Key: "service_id", Value: 1}, {Key: "usage_date", Value: 1}}},
			{Keys: bson.D{{Key: "client_service_id", Value: 1}, {Key: "report_id", Value: 1}}, Options: unique().SetPartialFilterExpression(stringField("report_id"))},
		},
	}

	for name, models := range plan {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", name, err)
		}
	}
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// pageOptions sorts by insertion order, which ObjectID-derived IDs preserve.
func pageOptions(p ports.Page) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if p.Skip > 0 {
		opts.SetSkip(int64(p.Skip))
	}
	if p.Limit > 0 {
		opts.SetLimit(int64(p.Limit))
	}
	return opts
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter any, notFound error) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var v T
	if err := col.FindOne(ctx, filter).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find in %s: %w", col.Name(), err)
	}
	return &v, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOptions) ([]*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", col.Name(), err)
	}
	defer cur.Close(ctx)

	out := []*T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", col.Name(), err)
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func count(ctx context.Context, col *mongo.Collection, filter any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", col.Name(), err)
	}
	return n, nil
}

// replaceByID overwrites the document with the given _id.
func replaceByID(ctx context.Context, col *mongo.Collection, id string, doc any, notFound error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}

func deleteByID(ctx context.Context, col *mongo.Collection, id string, notFound error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}

func deleteMany(ctx context.Context, col *mongo.Collection, filter any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", col.Name(), err)
	}
	return res.DeletedCount, nil
}
