package dao

import (
	"context"
	"encoding/json"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"

	redisdb "github.com/opendraw/opendraw-sync/library/db/redis"
	"github.com/opendraw/opendraw-sync/library/log"
)

// CachedFile is the cache payload for one file's content.
type CachedFile struct {
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// Cache is the read-through content cache plus the pub/sub backbone for
// cross-instance room broadcasts.
//
// GetFile/SetFile/DelFile never fail: the cache is an optimization, a
// broken backend degrades every lookup into a miss.
type Cache struct {
	db  *redisdb.DB
	ttl time.Duration
}

// NewCache create new Cache
func NewCache(db *redisdb.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}

	return &Cache{db: db, ttl: ttl}
}

// TTL returns the per-key lifetime of cached file content.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func fileKey(fileID string) string {
	return redisdb.KeyPrefixFileCache + fileID
}

// GetFile returns the cached content for fileID, or ok=false on miss.
func (c *Cache) GetFile(ctx context.Context, fileID string) (cached *CachedFile, ok bool) {
	raw, err := c.db.Client().Get(ctx, fileKey(fileID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Logger.Warn("cache get", zap.Error(err), zap.String("file_id", fileID))
		}
		return nil, false
	}

	cached = new(CachedFile)
	if err = json.Unmarshal(raw, cached); err != nil {
		log.Logger.Warn("cache decode", zap.Error(err), zap.String("file_id", fileID))
		return nil, false
	}

	return cached, true
}

// SetFile stores content under the file's cache key with the default TTL.
func (c *Cache) SetFile(ctx context.Context, fileID string, cached *CachedFile) {
	raw, err := json.Marshal(cached)
	if err != nil {
		log.Logger.Warn("cache encode", zap.Error(err), zap.String("file_id", fileID))
		return
	}

	if err = c.db.Client().Set(ctx, fileKey(fileID), raw, c.ttl).Err(); err != nil {
		log.Logger.Warn("cache set", zap.Error(err), zap.String("file_id", fileID))
	}
}

// DelFile invalidates the file's cache entry.
func (c *Cache) DelFile(ctx context.Context, fileID string) {
	if err := c.db.Client().Del(ctx, fileKey(fileID)).Err(); err != nil {
		log.Logger.Warn("cache del", zap.Error(err), zap.String("file_id", fileID))
	}
}

// PublishRoom fans an event envelope out to every instance serving the
// project's room.
func (c *Cache) PublishRoom(ctx context.Context, projectID string, payload []byte) error {
	err := c.db.Client().Publish(ctx, redisdb.ChannelPrefixRoom+projectID, payload).Err()
	return errors.Wrap(err, "publish room event")
}

// SubscribeRooms subscribes to every project room channel.
func (c *Cache) SubscribeRooms(ctx context.Context) *redis.PubSub {
	return c.db.Client().PSubscribe(ctx, redisdb.ChannelPrefixRoom+"*")
}

// RoomFromChannel extracts the project id from a room channel name.
func RoomFromChannel(channel string) string {
	if len(channel) <= len(redisdb.ChannelPrefixRoom) {
		return ""
	}
	return channel[len(redisdb.ChannelPrefixRoom):]
}

// AcquireLock takes a distributed lock via SET NX with a TTL. Defined for
// at-most-one-writer-per-fingerprint enforcement; the protocol engine does
// not take it on the write path today.
func (c *Cache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.db.Client().SetNX(ctx, redisdb.KeyPrefixLock+key, "1", ttl).Result()
	return ok, errors.Wrap(err, "acquire lock")
}

// ReleaseLock drops a held lock.
func (c *Cache) ReleaseLock(ctx context.Context, key string) error {
	err := c.db.Client().Del(ctx, redisdb.KeyPrefixLock+key).Err()
	return errors.Wrap(err, "release lock")
}
