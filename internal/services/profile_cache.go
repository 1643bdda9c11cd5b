package services

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"nearby/internal/domain/entities"
)

// ProfileCache keeps recently read user records so that repeated Explore
// calls do not hit the store for the requester's own record. It is bounded
// in size, entries expire after a TTL, and every write through
// LocationService invalidates the written user.
//
// A nil *ProfileCache is valid and caches nothing.
type ProfileCache struct {
	lru *expirable.LRU[string, entities.UserLocationRecord]
}

// NewProfileCache returns nil when size is not positive.
func NewProfileCache(size int, ttl time.Duration) *ProfileCache {
	if size <= 0 {
		return nil
	}
	return &ProfileCache{lru: expirable.NewLRU[string, entities.UserLocationRecord](size, nil, ttl)}
}

func (c *ProfileCache) Get(userID string) (entities.UserLocationRecord, bool) {
	if c == nil {
		return entities.UserLocationRecord{}, false
	}
	return c.lru.Get(userID)
}

func (c *ProfileCache) Add(rec entities.UserLocationRecord) {
	if c == nil {
		return
	}
	c.lru.Add(rec.UserID, rec)
}

func (c *ProfileCache) Invalidate(userID string) {
	if c == nil {
		return
	}
	c.lru.Remove(userID)
}

func (c *ProfileCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
