package memory

import (
	"context"
	"sort"
	"sync"

	"nearby/internal/domain"
	"nearby/internal/domain/entities"
	"nearby/internal/repository"
)

var _ repository.LocationStore = (*LocationRepository)(nil)

// indexEntry is one row of the sorted geohash index.
type indexEntry struct {
	geohash string
	userID  string
}

func (e indexEntry) less(o indexEntry) bool {
	if e.geohash != o.geohash {
		return e.geohash < o.geohash
	}
	return e.userID < o.userID
}

// LocationRepository stores location documents with a secondary index sorted
// by geohash for range scans. It maintains two data structures:
//   - docs: userID → document fields (primary lookup by user)
//   - index: (geohash, userID) pairs kept in sorted order (range lookup)
//
// This dual-index pattern is common when you need fast lookups by two different
// keys. The tradeoff is that both indices must be kept in sync on every write.
//
// Go Learning Note — sort.Search:
// sort.Search does a binary search for the smallest index where the predicate
// turns true. On a sorted slice that gives the insertion point for a key, so a
// range scan is one binary search followed by a linear walk until the upper
// bound, exactly what an ordered index in a database does.
type LocationRepository struct {
	mu    sync.RWMutex
	docs  map[string]map[string]any
	index []indexEntry
}

func NewLocationRepository() *LocationRepository {
	return &LocationRepository{
		docs: make(map[string]map[string]any),
	}
}

// Upsert merges the update into the user's document, moving the index entry
// when the geohash changed.
func (r *LocationRepository) Upsert(ctx context.Context, update entities.LocationUpdate) error {
	fields := map[string]any{
		entities.FieldGeohash:   update.Geohash,
		entities.FieldLatitude:  update.Location.Latitude,
		entities.FieldLongitude: update.Location.Longitude,
		entities.FieldUpdatedAt: update.UpdatedAt,
	}
	if update.Tags != nil {
		tags := make([]any, len(*update.Tags))
		for i, t := range *update.Tags {
			tags[i] = t
		}
		fields[entities.FieldTags] = tags
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mergeLocked(update.UserID, fields)
	return nil
}

// Put merges arbitrary fields into a document. Seeding and tests use it to
// store documents in shapes Upsert never writes.
func (r *LocationRepository) Put(raw entities.RawRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mergeLocked(raw.ID, raw.Fields)
}

func (r *LocationRepository) mergeLocked(userID string, fields map[string]any) {
	doc, exists := r.docs[userID]
	if !exists {
		doc = make(map[string]any, len(fields))
		r.docs[userID] = doc
	}

	oldHash, hadHash := doc[entities.FieldGeohash].(string)
	for k, v := range fields {
		doc[k] = v
	}
	newHash, hasHash := doc[entities.FieldGeohash].(string)

	if hadHash && (!hasHash || oldHash != newHash) {
		r.removeIndexLocked(indexEntry{geohash: oldHash, userID: userID})
	}
	if hasHash && (!hadHash || oldHash != newHash) {
		r.insertIndexLocked(indexEntry{geohash: newHash, userID: userID})
	}
}

func (r *LocationRepository) insertIndexLocked(e indexEntry) {
	i := sort.Search(len(r.index), func(i int) bool { return !r.index[i].less(e) })
	r.index = append(r.index, indexEntry{})
	copy(r.index[i+1:], r.index[i:])
	r.index[i] = e
}

func (r *LocationRepository) removeIndexLocked(e indexEntry) {
	i := sort.Search(len(r.index), func(i int) bool { return !r.index[i].less(e) })
	if i < len(r.index) && r.index[i] == e {
		r.index = append(r.index[:i], r.index[i+1:]...)
	}
}

// Get returns a copy of one user's document.
func (r *LocationRepository) Get(ctx context.Context, userID string) (entities.RawRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.docs[userID]
	if !exists {
		return entities.RawRecord{}, domain.ErrNotFound
	}
	return entities.RawRecord{ID: userID, Fields: copyFields(doc)}, nil
}

// RangeScan walks the sorted index from the first entry >= low up to high.
// This is an O(log n) seek + O(k) iteration where k is the number of hits.
func (r *LocationRepository) RangeScan(ctx context.Context, low, high string) ([]entities.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	start := sort.Search(len(r.index), func(i int) bool { return r.index[i].geohash >= low })
	var out []entities.RawRecord
	for _, e := range r.index[start:] {
		if e.geohash >= high {
			break
		}
		out = append(out, entities.RawRecord{ID: e.userID, Fields: copyFields(r.docs[e.userID])})
	}
	return out, nil
}

func (r *LocationRepository) Ping(ctx context.Context) error { return nil }

func (r *LocationRepository) Close(ctx context.Context) error { return nil }

// copyFields returns a shallow copy so callers never observe later writes.
func copyFields(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
