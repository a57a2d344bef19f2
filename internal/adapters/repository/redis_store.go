package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/config"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/ports"
)

// appendScript stamps and pushes one review atomically. KEYS[1] is the list,
// KEYS[2] holds the last stamp; ARGV is now_ms, name, text. Returns the stamp.
var appendScript = redis.NewScript(`
local stamp = tonumber(ARGV[1])
local last = tonumber(redis.call('GET', KEYS[2]) or '0')
if last > stamp then
	stamp = last
end
redis.call('SET', KEYS[2], stamp)
redis.call('RPUSH', KEYS[1], cjson.encode({name = ARGV[2], text = ARGV[3], ts_ms = stamp}))
return stamp
`)

// RedisStoreOptions configures a RedisStore
type RedisStoreOptions struct {
	Redis         config.RedisConfig
	CorruptPolicy string
	Logger        *logger.Logger
	Clock         func() time.Time
	OnCorrupt     func()
}

// RedisStore keeps each collection in a redis list
type RedisStore struct {
	client    *redis.Client
	prefix    string
	strict    bool
	now       func() time.Time
	logger    *logger.Logger
	onCorrupt func()
}

type redisRecord struct {
	Name string `json:"name"`
	Text string `json:"text"`
	TsMS int64  `json:"ts_ms"`
}

// NewRedisStore connects to redis with a few retries and exponential backoff
func NewRedisStore(ctx context.Context, opts RedisStoreOptions) (*RedisStore, error) {
	cfg := opts.Redis

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 3,
	})

	const maxRetries = 3
	retryDelay := 500 * time.Millisecond

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			break
		}
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				client.Close()
				return nil, fmt.Errorf("connect redis: %w: %v", entities.ErrStorageUnavailable, ctx.Err())
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w: %v", cfg.GetRedisAddr(), entities.ErrStorageUnavailable, err)
	}

	s := &RedisStore{
		client:    client,
		prefix:    cfg.KeyPrefix,
		strict:    opts.CorruptPolicy == config.CorruptPolicyStrict,
		now:       opts.Clock,
		logger:    opts.Logger,
		onCorrupt: opts.OnCorrupt,
	}
	if s.prefix == "" {
		s.prefix = "cinereview"
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	s.logger = s.logger.WithComponent("redis_store")

	return s, nil
}

var _ ports.ReviewStore = (*RedisStore)(nil)

func (s *RedisStore) listKey(id entities.MovieID) string {
	return fmt.Sprintf("%s:reviews:%s", s.prefix, id.String())
}

func (s *RedisStore) lastKey(id entities.MovieID) string {
	return fmt.Sprintf("%s:reviews:%s:last_ms", s.prefix, id.String())
}

func (s *RedisStore) List(ctx context.Context, id entities.MovieID) ([]entities.Review, error) {
	raw, err := s.client.LRange(ctx, s.listKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w: %v", entities.ErrStorageUnavailable, err)
	}

	reviews := make([]entities.Review, 0, len(raw))
	for _, item := range raw {
		var rec redisRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			err = fmt.Errorf("decode review in %s: %w: %v", s.listKey(id), entities.ErrCorruptData, err)
			s.reportCorruption(id, err)
			if s.strict {
				return nil, err
			}
			return []entities.Review{}, nil
		}
		reviews = append(reviews, entities.Review{
			Name:      rec.Name,
			Text:      rec.Text,
			Timestamp: fromMillis(rec.TsMS),
		})
	}
	return reviews, nil
}

func (s *RedisStore) Append(ctx context.Context, id entities.MovieID, review entities.Review) (entities.Review, error) {
	keys := []string{s.listKey(id), s.lastKey(id)}
	stamp, err := appendScript.Run(ctx, s.client, keys, toMillis(s.now()), review.Name, review.Text).Int64()
	if err != nil {
		return entities.Review{}, fmt.Errorf("append review: %w: %v", entities.ErrStorageUnavailable, err)
	}

	review.Timestamp = fromMillis(stamp)
	return review, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) reportCorruption(id entities.MovieID, err error) {
	s.logger.Warnw("Review collection could not be parsed",
		"movie_id", id.String(),
		"key", s.listKey(id),
		"strict", s.strict,
		"error", err.Error(),
	)
	if s.onCorrupt != nil {
		s.onCorrupt()
	}
}
