package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calcula-ai/price-bot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// KVRepository is the durable key-value store behind the session pointer and
// the add-flow dialogue state. Single-key operations only, last write wins.
type KVRepository interface {
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

type kvDoc struct {
	Key       string        `bson:"_id"`
	Value     bson.RawValue `bson:"value"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type kvRepo struct {
	collection *mongo.Collection
}

func NewKVRepository(db *DB) KVRepository {
	return &kvRepo{
		collection: db.Database.Collection("kv_store"),
	}
}

func (r *kvRepo) Get(ctx context.Context, key string, out any) error {
	var doc kvDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrNotFound
		}
		return fmt.Errorf("get key %q: %w", key, err)
	}
	if err := doc.Value.Unmarshal(out); err != nil {
		return fmt.Errorf("decode key %q: %w", key, err)
	}
	return nil
}

func (r *kvRepo) Set(ctx context.Context, key string, value any) error {
	update := bson.M{
		"$set": bson.M{
			"value":      value,
			"updated_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": key}, update, opts); err != nil {
		return fmt.Errorf("set key %q: %w", key, err)
	}
	return nil
}

func (r *kvRepo) Remove(ctx context.Context, key string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("remove key %q: %w", key, err)
	}
	return nil
}
