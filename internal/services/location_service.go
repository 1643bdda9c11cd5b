package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nearby/internal/domain/entities"
	"nearby/internal/geo"
	"nearby/internal/logger"
	"nearby/internal/repository"
)

// ErrMissingUserID is returned when a write names no user.
var ErrMissingUserID = errors.New("user id is required")

// LocationService owns the write path: a user sharing their own position
// and editing their interest tags. The geohash is always derived here from
// the written coordinates, never accepted from the caller.
type LocationService struct {
	store     repository.LocationStore
	cache     *ProfileCache
	locks     *userLocks
	precision int
	now       func() time.Time
}

func NewLocationService(store repository.LocationStore, cache *ProfileCache, precision int) *LocationService {
	return &LocationService{
		store:     store,
		cache:     cache,
		locks:     newUserLocks(),
		precision: geo.ClampPrecision(precision),
		now:       time.Now,
	}
}

// UpdateLocation validates and stores the user's coordinates. Tags are
// written only when tags is non-nil; a plain location fix keeps the tags the
// user declared earlier.
func (s *LocationService) UpdateLocation(ctx context.Context, userID string, lat, lon float64, tags *[]string) (*entities.UserLocationRecord, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if err := geo.ValidateCoordinate(lat, lon); err != nil {
		return nil, err
	}

	update := entities.LocationUpdate{
		UserID:    userID,
		Geohash:   geo.Encode(lat, lon, s.precision),
		Location:  entities.NewLocation(lat, lon),
		UpdatedAt: s.now().UTC(),
	}
	if tags != nil {
		normalized := entities.NormalizeTags(*tags)
		update.Tags = &normalized
	}

	unlock, err := s.locks.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = s.write(ctx, update)
	unlock()
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("location updated",
		zap.String("user_id", userID),
		zap.String("geohash", update.Geohash),
	)
	return s.Get(ctx, userID)
}

// UpdateTags replaces the user's tags, keeping the stored position. The user
// must have shared a location before.
func (s *LocationService) UpdateTags(ctx context.Context, userID string, tags []string) (*entities.UserLocationRecord, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	unlock, err := s.locks.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, userID)
	if err != nil {
		unlock()
		return nil, err
	}

	normalized := entities.NormalizeTags(tags)
	update := entities.LocationUpdate{
		UserID:    userID,
		Geohash:   geo.Encode(current.Location.Latitude, current.Location.Longitude, s.precision),
		Location:  current.Location,
		Tags:      &normalized,
		UpdatedAt: s.now().UTC(),
	}
	err = s.write(ctx, update)
	unlock()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Get returns the user's record, from the profile cache when possible.
// Missing users yield domain.ErrNotFound. A cache miss loads and caches under
// the user's write lock, so a record read before a concurrent write can never
// be cached after it.
func (s *LocationService) Get(ctx context.Context, userID string) (*entities.UserLocationRecord, error) {
	if rec, ok := s.cache.Get(userID); ok {
		return &rec, nil
	}

	unlock, err := s.locks.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rec, ok := s.cache.Get(userID); ok {
		return &rec, nil
	}
	rec, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(*rec)
	return rec, nil
}

func (s *LocationService) load(ctx context.Context, userID string) (*entities.UserLocationRecord, error) {
	raw, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := entities.ParseRecord(raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// write must be called with the user's lock held.
func (s *LocationService) write(ctx context.Context, update entities.LocationUpdate) error {
	if err := s.store.Upsert(ctx, update); err != nil {
		s.cache.Invalidate(update.UserID)
		return fmt.Errorf("store location of %s: %w", update.UserID, err)
	}
	s.cache.Invalidate(update.UserID)
	return nil
}
