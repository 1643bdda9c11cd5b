// Package mongo implements the location store on MongoDB. Each user is one
// document keyed by _id = user_id; an ascending index on geohash serves the
// range scans.
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

	"nearby/internal/domain"
	"nearby/internal/domain/entities"
	"nearby/internal/repository"
)

var _ repository.LocationStore = (*Store)(nil)

// DefaultCollection is used when the config leaves the collection empty.
const DefaultCollection = "locations"

// Config holds connection parameters for a MongoDB store.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements repository.LocationStore on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewStore connects, pings, and makes sure the geohash index exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, errors.New("uri and database are required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	s := &Store{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}
	_, err = s.coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: entities.FieldGeohash, Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create geohash index: %w", err)
	}
	return s, nil
}

func (s *Store) Upsert(ctx context.Context, update entities.LocationUpdate) error {
	set := bson.M{
		entities.FieldGeohash:   update.Geohash,
		entities.FieldLatitude:  update.Location.Latitude,
		entities.FieldLongitude: update.Location.Longitude,
		entities.FieldUpdatedAt: update.UpdatedAt,
	}
	if update.Tags != nil {
		tags := *update.Tags
		if tags == nil {
			tags = []string{}
		}
		set[entities.FieldTags] = tags
	}

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": update.UserID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", update.UserID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (entities.RawRecord, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entities.RawRecord{}, domain.ErrNotFound
		}
		return entities.RawRecord{}, fmt.Errorf("get %s: %w", userID, err)
	}
	return toRawRecord(doc), nil
}

// RangeScan finds geohash >= low AND geohash < high.
func (s *Store) RangeScan(ctx context.Context, low, high string) ([]entities.RawRecord, error) {
	filter := bson.M{entities.FieldGeohash: bson.M{"$gte": low, "$lt": high}}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("range %s..%s: %w", low, high, err)
	}
	defer cursor.Close(ctx)

	var out []entities.RawRecord
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("range %s..%s: decode: %w", low, high, err)
		}
		out = append(out, toRawRecord(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("range %s..%s: %w", low, high, err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toRawRecord converts driver types into the plain Go values record parsing
// understands.
func toRawRecord(doc bson.M) entities.RawRecord {
	id, _ := doc["_id"].(string)
	fields := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		fields[k] = plain(v)
	}
	return entities.RawRecord{ID: id, Fields: fields}
}

func plain(v any) any {
	switch t := v.(type) {
	case primitive.A:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = plain(el)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = plain(el)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.DateTime:
		return t.Time()
	default:
		return v
	}
}
