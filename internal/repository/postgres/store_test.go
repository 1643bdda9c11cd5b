package postgres

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"nearby/internal/domain"
	"nearby/internal/domain/entities"
)

// newTestStore connects to NEARBY_TEST_POSTGRES_DSN and starts from an empty
// table. Tests are skipped when the variable is not set.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("NEARBY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NEARBY_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE user_locations`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { s.Close(ctx) })
	return s
}

func TestNewStore_RequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestStore_UpsertGetRangeScan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tags := []string{"#coffee"}
	updates := []entities.LocationUpdate{
		{UserID: "u1", Geohash: "dr5regw3pg", Location: entities.NewLocation(40.7128, -74.006), Tags: &tags, UpdatedAt: time.Now()},
		{UserID: "u2", Geohash: "dr5rf00000", Location: entities.NewLocation(40.7, -74.0), UpdatedAt: time.Now()},
		// location-only fix for u1 keeps tags
		{UserID: "u1", Geohash: "dr5regw3ph", Location: entities.NewLocation(40.7129, -74.006), UpdatedAt: time.Now()},
	}
	for _, u := range updates {
		if err := s.Upsert(ctx, u); err != nil {
			t.Fatalf("upsert %s: %v", u.UserID, err)
		}
	}

	raw, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rec, err := entities.ParseRecord(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.Geohash != "dr5regw3ph" || !reflect.DeepEqual(rec.Tags, []string{"#coffee"}) {
		t.Errorf("unexpected record after merge: %+v", rec)
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

func TestStore_NullCoordinatesAreMalformed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO user_locations (user_id, geohash, latitude) VALUES ('broken', 'dr5rea0000', 40.7)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	recs, err := s.RangeScan(ctx, "dr5re", "dr5rf")
	if err != nil {
		t.Fatalf("range scan: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if _, err := entities.ParseRecord(recs[0]); !errors.Is(err, domain.ErrMalformedRecord) {
		t.Errorf("expected malformed record, got %v", err)
	}
}
