package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imageresizer/bridge"
	"imageresizer/shared/log"
)

const KeyPrefix = "imageresizer:size:"

// SizeCache remembers imageSize answers. Failures are logged and treated as
// misses; the cache never fails a call.
type SizeCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewSizeCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *SizeCache {
	return &SizeCache{client: client, ttl: ttl, logger: logger}
}

func Key(req bridge.SizeRequest) string {
	sum := sha256.Sum256([]byte(string(req.ImageDataType) + "\x00" + req.Data))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

func (c *SizeCache) Get(ctx context.Context, req bridge.SizeRequest) (*bridge.SizeResult, bool) {
	logger := log.LoggerWithTrace(ctx, c.logger)

	raw, err := c.client.Get(ctx, Key(req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Error reading size cache", zap.Error(err))
		}
		return nil, false
	}

	var res bridge.SizeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		logger.Warn("Error decoding cached size", zap.Error(err))
		return nil, false
	}

	return &res, true
}

func (c *SizeCache) Set(ctx context.Context, req bridge.SizeRequest, res *bridge.SizeResult) {
	logger := log.LoggerWithTrace(ctx, c.logger)

	raw, err := json.Marshal(res)
	if err != nil {
		logger.Warn("Error encoding size for cache", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, Key(req), raw, c.ttl).Err(); err != nil {
		logger.Warn("Error writing size cache", zap.Error(err))
	}
}
