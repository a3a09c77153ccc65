package game

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisRegistry persists sessions as JSON under a per-chat key with a TTL,
// so an idle game expires on its own.
type redisRegistry struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRegistry(rdb *redis.Client, ttl time.Duration) Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisRegistry{rdb: rdb, ttl: ttl}
}

func (r *redisRegistry) key(chatID int64) string {
	return "chess:session:" + strconv.FormatInt(chatID, 10)
}

func (r *redisRegistry) Get(ctx context.Context, chatID int64) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(chatID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *redisRegistry) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(sess.ChatID), raw, r.ttl).Err()
}

func (r *redisRegistry) Delete(ctx context.Context, chatID int64) error {
	return r.rdb.Del(ctx, r.key(chatID)).Err()
}
