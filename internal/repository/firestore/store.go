// Package firestore implements the location store on Cloud Firestore, one
// document per user in a single collection. Range scans are plain
// inequality queries on the geohash field, which Firestore serves from its
// automatic single-field index.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nearby/internal/domain"
	"nearby/internal/domain/entities"
	"nearby/internal/repository"
)

var _ repository.LocationStore = (*Store)(nil)

// DefaultCollection is the collection the web client writes locations to.
const DefaultCollection = "locations"

// Store implements repository.LocationStore on a Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
}

// NewStore wraps an existing client. The client is usually obtained from the
// Firebase app so that it shares credentials with token verification.
func NewStore(client *firestore.Client, collection string) (*Store, error) {
	if client == nil {
		return nil, errors.New("firestore client is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}, nil
}

func (s *Store) coll() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Upsert merges the update into the user's document. MergeAll leaves fields
// the update does not name untouched.
func (s *Store) Upsert(ctx context.Context, update entities.LocationUpdate) error {
	data := map[string]any{
		entities.FieldGeohash:   update.Geohash,
		entities.FieldLatitude:  update.Location.Latitude,
		entities.FieldLongitude: update.Location.Longitude,
		entities.FieldUpdatedAt: update.UpdatedAt,
	}
	if update.Tags != nil {
		data[entities.FieldTags] = *update.Tags
	}

	if _, err := s.coll().Doc(update.UserID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("upsert %s: %w", update.UserID, err)
	}
	return nil
}

// Get returns the user's document, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, userID string) (entities.RawRecord, error) {
	snap, err := s.coll().Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entities.RawRecord{}, domain.ErrNotFound
		}
		return entities.RawRecord{}, fmt.Errorf("get %s: %w", userID, err)
	}
	return entities.RawRecord{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

// RangeScan runs geohash >= low AND geohash < high.
func (s *Store) RangeScan(ctx context.Context, low, high string) ([]entities.RawRecord, error) {
	snaps, err := s.coll().
		Where(entities.FieldGeohash, ">=", low).
		Where(entities.FieldGeohash, "<", high).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("range %s..%s: %w", low, high, err)
	}

	out := make([]entities.RawRecord, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, entities.RawRecord{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return out, nil
}

// Ping reads at most one document to prove the client can reach the project.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.coll().Limit(1).Documents(ctx).GetAll(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}
