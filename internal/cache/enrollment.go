// Package cache holds the short-lived Redis cache in front of enrollment
// lookups.  A nil *EnrollmentCache, or one built without a client, is a
// valid no-op cache so callers never branch on Redis availability.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/model"
)

const enrollmentPrefix = "course:enrollment:"

type EnrollmentCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewEnrollmentCache returns a cache with the given TTL.  rdb may be nil.
func NewEnrollmentCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *EnrollmentCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnrollmentCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *EnrollmentCache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

func key(userID string) string { return enrollmentPrefix + userID }

// Get returns the cached enrollments of userID.  ok is false on a miss or
// any Redis error.
func (c *EnrollmentCache) Get(ctx context.Context, userID string) (list []model.Enrollment, ok bool) {
	if !c.enabled() {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("enrollment cache get failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	if err := json.Unmarshal(bs, &list); err != nil {
		return nil, false
	}
	return list, true
}

// Set stores list for userID.  Failures are logged and otherwise ignored.
func (c *EnrollmentCache) Set(ctx context.Context, userID string, list []model.Enrollment) {
	if !c.enabled() {
		return
	}
	if list == nil {
		list = []model.Enrollment{}
	}
	bs, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := c.rdb.SetEx(ctx, key(userID), bs, c.ttl).Err(); err != nil {
		c.log.Warn("enrollment cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Invalidate drops the cached entry after a write.
func (c *EnrollmentCache) Invalidate(ctx context.Context, userID string) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Del(ctx, key(userID)).Err(); err != nil {
		c.log.Warn("enrollment cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
