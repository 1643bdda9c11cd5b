// Package redis implements the location store on Redis via rueidis.
//
// Each user is a hash at <prefix>loc:<user_id>. A single sorted set at
// <prefix>geoidx holds "<geohash>:<user_id>" members, all with score 0, so
// ZRANGEBYLEX over it is an ordered geohash index.
//
// Upsert touches both keys in one script, so on Redis Cluster the prefix must
// carry a hash tag (for example "{nearby}:") to keep them in one slot.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"nearby/internal/domain"
	"nearby/internal/domain/entities"
	"nearby/internal/repository"
)

// Compile-time check: Store implements repository.LocationStore.
var _ repository.LocationStore = (*Store)(nil)

const memberSep = ":"

// upsertScript moves the index member and writes the hash atomically.
// KEYS: user hash, index. ARGV: ":<user_id>", new geohash, field/value pairs.
const upsertScript = `
local old = redis.call('HGET', KEYS[1], '` + entities.FieldGeohash + `')
if old and old ~= ARGV[2] then
  redis.call('ZREM', KEYS[2], old .. ARGV[1])
end
redis.call('ZADD', KEYS[2], 0, ARGV[2] .. ARGV[1])
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
return 1
`

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements repository.LocationStore via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *Store) userKey(userID string) string { return s.prefix + "loc:" + userID }

func (s *Store) indexKey() string { return s.prefix + "geoidx" }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close(ctx context.Context) error {
	s.client.Close()
	return nil
}

// Upsert writes the user's hash and moves the index member when the geohash
// changed. The read of the old geohash and both writes run as one script, so
// concurrent writers on other instances cannot leave a stale index member.
func (s *Store) Upsert(ctx context.Context, update entities.LocationUpdate) error {
	args := []string{
		memberSep + update.UserID,
		update.Geohash,
		entities.FieldGeohash, update.Geohash,
		entities.FieldLatitude, strconv.FormatFloat(update.Location.Latitude, 'f', -1, 64),
		entities.FieldLongitude, strconv.FormatFloat(update.Location.Longitude, 'f', -1, 64),
		entities.FieldUpdatedAt, update.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if update.Tags != nil {
		tags, err := json.Marshal(*update.Tags)
		if err != nil {
			return fmt.Errorf("upsert %s: encode tags: %w", update.UserID, err)
		}
		args = append(args, entities.FieldTags, string(tags))
	}

	cmd := s.client.B().Eval().Script(upsertScript).Numkeys(2).
		Key(s.userKey(update.UserID), s.indexKey()).
		Arg(args...).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("upsert %s: %w", update.UserID, err)
	}
	return nil
}

// Get returns one user's hash, or domain.ErrNotFound when it does not exist.
func (s *Store) Get(ctx context.Context, userID string) (entities.RawRecord, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(s.userKey(userID)).Build()).AsStrMap()
	if err != nil {
		return entities.RawRecord{}, fmt.Errorf("get %s: %w", userID, err)
	}
	if len(m) == 0 {
		return entities.RawRecord{}, domain.ErrNotFound
	}
	return toRawRecord(userID, m), nil
}

// RangeScan reads index members in [low, high) with ZRANGEBYLEX, then fetches
// the matching hashes in a single DoMulti round-trip.
func (s *Store) RangeScan(ctx context.Context, low, high string) ([]entities.RawRecord, error) {
	cmd := s.client.B().Zrangebylex().Key(s.indexKey()).Min("[" + low).Max("(" + high).Build()
	members, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("zrangebylex: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(members))
	cmds := make(rueidis.Commands, 0, len(members))
	for _, m := range members {
		_, userID, ok := strings.Cut(m, memberSep)
		if !ok || userID == "" {
			continue
		}
		userIDs = append(userIDs, userID)
		cmds = append(cmds, s.client.B().Hgetall().Key(s.userKey(userID)).Build())
	}
	if len(cmds) == 0 {
		return nil, nil
	}

	out := make([]entities.RawRecord, 0, len(cmds))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", userIDs[i], err)
		}
		// index member outlived its hash
		if len(m) == 0 {
			continue
		}
		out = append(out, toRawRecord(userIDs[i], m))
	}
	return out, nil
}

// toRawRecord decodes the tags JSON. An undecodable value is passed through as
// a string so record parsing reports it as malformed.
func toRawRecord(userID string, m map[string]string) entities.RawRecord {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		fields[k] = v
	}
	if raw, ok := m[entities.FieldTags]; ok {
		var tags []any
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			fields[entities.FieldTags] = tags
		}
	}
	return entities.RawRecord{ID: userID, Fields: fields}
}
