package repository

import (
	"context"

	"nearby/internal/domain/entities"
)

// LocationStore is the persisted user-location collection. Implementations
// only need lexicographic range scans over the geohash field; no native
// geospatial query is assumed.
type LocationStore interface {
	// Upsert merges the update into the record keyed by UserID, leaving
	// fields it does not name untouched. Tags are written only when non-nil.
	Upsert(ctx context.Context, update entities.LocationUpdate) error

	// Get returns the raw record of one user, or domain.ErrNotFound.
	Get(ctx context.Context, userID string) (entities.RawRecord, error)

	// RangeScan returns every record whose geohash is in [low, high).
	RangeScan(ctx context.Context, low, high string) ([]entities.RawRecord, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying client.
	Close(ctx context.Context) error
}
