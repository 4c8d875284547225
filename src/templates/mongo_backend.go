package templates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCloseTimeout = 5 * time.Second

// mongoSeedMarker is written last by a full save. Entries without it come
// from a seed that stopped partway.
const mongoSeedMarker = "__seeded__"

type templateDoc struct {
	Category  string    `bson:"_id"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoBackend keeps one document per category, keyed by category name.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoBackend(ctx context.Context, uri, database, collection string) (*MongoBackend, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoBackend{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (b *MongoBackend) Load(ctx context.Context) (map[string]string, error) {
	cur, err := b.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]string{}
	seeded := false
	for cur.Next(ctx) {
		var doc templateDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.Category == mongoSeedMarker {
			seeded = true
			continue
		}
		out[doc.Category] = doc.Body
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoSnapshot
	}
	if !seeded {
		return out, ErrPartialSnapshot
	}
	return out, nil
}

// Save writes every entry in one ordered bulk request. A full save (no
// changed category) ends with the seed marker.
func (b *MongoBackend) Save(ctx context.Context, snapshot map[string]string, changed string) error {
	writes := mongoWrites(entriesToWrite(snapshot, changed), changed == "", time.Now().UTC())
	if _, err := b.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk write templates: %w", err)
	}
	return nil
}

func mongoWrites(entries map[string]string, full bool, now time.Time) []mongo.WriteModel {
	categories := make([]string, 0, len(entries))
	for c := range entries {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	if full {
		categories = append(categories, mongoSeedMarker)
	}

	writes := make([]mongo.WriteModel, 0, len(categories))
	for _, c := range categories {
		doc := templateDoc{Category: c, Body: entries[c], UpdatedAt: now}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": c}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	return writes
}

func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return b.client.Disconnect(ctx)
}
