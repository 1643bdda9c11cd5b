// Package postgres implements the location store on PostgreSQL via pgx.
//
// The geohash column uses the "C" collation so that range predicates compare
// bytes, matching the lexicographic order every other store relies on.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nearby/internal/domain"
	"nearby/internal/domain/entities"
	"nearby/internal/repository"
)

var _ repository.LocationStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS user_locations (
	user_id    text PRIMARY KEY,
	geohash    text COLLATE "C" NOT NULL,
	latitude   double precision,
	longitude  double precision,
	tags       text[],
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS user_locations_geohash_idx ON user_locations (geohash);
`

// Tags are only overwritten when the update carries them ($5 is NULL otherwise).
const upsertSQL = `
INSERT INTO user_locations (user_id, geohash, latitude, longitude, tags, updated_at)
VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::text[]), $6)
ON CONFLICT (user_id) DO UPDATE SET
	geohash    = EXCLUDED.geohash,
	latitude   = EXCLUDED.latitude,
	longitude  = EXCLUDED.longitude,
	tags       = COALESCE($5, user_locations.tags),
	updated_at = EXCLUDED.updated_at`

const selectColumns = `SELECT user_id, geohash, latitude, longitude, tags, updated_at FROM user_locations`

// Store implements repository.LocationStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the table and index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, update entities.LocationUpdate) error {
	var tags []string
	if update.Tags != nil {
		tags = *update.Tags
		if tags == nil {
			tags = []string{}
		}
	}

	_, err := s.pool.Exec(ctx, upsertSQL,
		update.UserID,
		update.Geohash,
		update.Location.Latitude,
		update.Location.Longitude,
		tags,
		update.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", update.UserID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (entities.RawRecord, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectColumns+` WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.RawRecord{}, domain.ErrNotFound
		}
		return entities.RawRecord{}, fmt.Errorf("get %s: %w", userID, err)
	}
	return rec, nil
}

// RangeScan runs geohash >= low AND geohash < high over the geohash index.
func (s *Store) RangeScan(ctx context.Context, low, high string) ([]entities.RawRecord, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE geohash >= $1 AND geohash < $2`, low, high)
	if err != nil {
		return nil, fmt.Errorf("range %s..%s: %w", low, high, err)
	}
	defer rows.Close()

	var out []entities.RawRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("range %s..%s: %w", low, high, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("range %s..%s: %w", low, high, err)
	}
	return out, nil
}

// scanRecord leaves NULL columns out of the field map so that record parsing
// can report them as missing.
func scanRecord(row pgx.Row) (entities.RawRecord, error) {
	var (
		userID, geohash string
		lat, lng        *float64
		tags            []string
		updatedAt       time.Time
	)
	if err := row.Scan(&userID, &geohash, &lat, &lng, &tags, &updatedAt); err != nil {
		return entities.RawRecord{}, err
	}

	fields := map[string]any{
		entities.FieldGeohash:   geohash,
		entities.FieldUpdatedAt: updatedAt,
	}
	if lat != nil {
		fields[entities.FieldLatitude] = *lat
	}
	if lng != nil {
		fields[entities.FieldLongitude] = *lng
	}
	if tags != nil {
		fields[entities.FieldTags] = tags
	}
	return entities.RawRecord{ID: userID, Fields: fields}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
