package store

import (
	"context"
	"encoding/json"
	"time"

	"CProject/logger"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps a room's comment list in Redis for the join-time
// hydration path. Misses and Redis failures both read through to the store;
// comment mutations invalidate the key. A nil cache disables caching.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func commentsKey(roomID string) string { return "collab:comments:" + roomID }

func (c *SnapshotCache) GetComments(ctx context.Context, roomID string) ([]Comment, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, commentsKey(roomID)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []Comment
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warnf("[SnapshotCache] corrupt entry room=%s err=%v", roomID, err)
		_ = c.rdb.Del(ctx, commentsKey(roomID)).Err()
		return nil, false
	}
	return out, true
}

func (c *SnapshotCache) SetComments(ctx context.Context, roomID string, comments []Comment) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(comments)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, commentsKey(roomID), raw, c.ttl).Err(); err != nil {
		logger.Debugf("[SnapshotCache] set failed room=%s err=%v", roomID, err)
	}
}

func (c *SnapshotCache) Invalidate(ctx context.Context, roomID string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, commentsKey(roomID)).Err(); err != nil {
		logger.Debugf("[SnapshotCache] invalidate failed room=%s err=%v", roomID, err)
	}
}
