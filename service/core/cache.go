package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	sm "gti/service/models"
)

const cachePrefix = "gti:index:"

// ResultCache keeps computed index responses in redis, keyed by a hash of everything
// that determines the result
type ResultCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewResultCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ResultCache {
	return &ResultCache{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

type cacheKeyInput struct {
	Weights  []sm.WeightPayload `json:"weights"`
	Settings Settings           `json:"settings"`
	Start    string             `json:"start"`
	End      string             `json:"end"`
}

// CacheKey hashes the resolved inputs, so a request relying on defaults and one spelling
// them out share an entry
func CacheKey(weights []sm.WeightPayload, settings Settings, start, end string) (string, error) {
	data, err := json.Marshal(cacheKeyInput{weights, settings, start, end})
	if err != nil {
		return "", fmt.Errorf("error building cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return cachePrefix + hex.EncodeToString(sum[:]), nil
}

// Get returns the cached response, false on a miss. Redis failures are logged and
// treated as a miss so the index is still computed.
func (rc *ResultCache) Get(ctx context.Context, key string) (*sm.IndexResponse, bool) {
	data, err := rc.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		rc.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return nil, false
	}

	var res sm.IndexResponse
	if err := json.Unmarshal(data, &res); err != nil {
		rc.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable cache entry")
		return nil, false
	}
	return &res, true
}

func (rc *ResultCache) Set(ctx context.Context, key string, res *sm.IndexResponse) {
	data, err := json.Marshal(res)
	if err != nil {
		rc.logger.Warn().Err(err).Str("key", key).Msg("error serializing index response")
		return
	}

	if err := rc.redis.Set(ctx, key, data, rc.ttl).Err(); err != nil {
		rc.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return
	}
	rc.logger.Debug().Str("key", key).Dur("ttl", rc.ttl).Msg("cached index response")
}

func (rc *ResultCache) Ping(ctx context.Context) error {
	return rc.redis.Ping(ctx).Err()
}

// Clear drops every cached index response. Run after prices change, open ended requests
// would otherwise keep the old result until the entry expires.
func (rc *ResultCache) Clear(ctx context.Context) (int64, error) {
	var keys []string
	iter := rc.redis.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cached index responses: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := rc.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("error clearing cached index responses: %w", err)
	}
	rc.logger.Info().Int64("removed", n).Msg("cleared index cache")
	return n, nil
}
