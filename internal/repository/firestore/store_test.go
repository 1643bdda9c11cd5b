package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"nearby/internal/domain"
	"nearby/internal/domain/entities"
)

// newEmulatorStore returns a store backed by the Firestore emulator, skipping
// the test when FIRESTORE_EMULATOR_HOST is not set.
func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "nearby-test")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	collection := fmt.Sprintf("locations_%d", time.Now().UnixNano())
	s, err := NewStore(client, collection)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close(ctx) })
	return s
}

func TestNewStore_RequiresClient(t *testing.T) {
	if _, err := NewStore(nil, ""); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestStore_UpsertGetRangeScan(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	tags := []string{"#coffee"}
	if err := s.Upsert(ctx, entities.LocationUpdate{
		UserID:    "u1",
		Geohash:   "dr5regw3pg",
		Location:  entities.NewLocation(40.7128, -74.006),
		Tags:      &tags,
		UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, entities.LocationUpdate{
		UserID:    "u2",
		Geohash:   "dr5rf00000",
		Location:  entities.NewLocation(40.7, -74.0),
		UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// location-only update keeps tags
	if err := s.Upsert(ctx, entities.LocationUpdate{
		UserID:    "u1",
		Geohash:   "dr5regw3ph",
		Location:  entities.NewLocation(40.7129, -74.006),
		UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	raw, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rec, err := entities.ParseRecord(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(rec.Tags, []string{"#coffee"}) {
		t.Errorf("expected tags to survive, got %v", rec.Tags)
	}

	recs, err := s.RangeScan(ctx, "dr5re", "dr5rf")
	if err != nil {
		t.Fatalf("range scan: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "u1" {
		t.Errorf("expected only u1 in [dr5re, dr5rf), got %+v", recs)
	}

	if _, err := s.Get(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
