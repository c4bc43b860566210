package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imageresizer/bridge"
)

type mockRedis struct {
	redis.Cmdable
	values map[string]string
	ttl    time.Duration
	err    error
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value, expiration)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.values[key] = string(value.([]byte))
	m.ttl = expiration
	cmd.SetVal("OK")
	return cmd
}

func TestKey(t *testing.T) {
	a := Key(bridge.SizeRequest{Data: "file:///a.jpg", ImageDataType: bridge.ImageDataURL})
	b := Key(bridge.SizeRequest{Data: "file:///a.jpg", ImageDataType: bridge.ImageDataBase64})

	assert.True(t, strings.HasPrefix(a, KeyPrefix))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Key(bridge.SizeRequest{Data: "file:///a.jpg", ImageDataType: bridge.ImageDataURL}))
}

func TestSizeCacheRoundTrip(t *testing.T) {
	client := &mockRedis{values: map[string]string{}}
	c := NewSizeCache(client, 5*time.Minute, zap.NewNop())
	req := bridge.SizeRequest{Data: "file:///a.jpg", ImageDataType: bridge.ImageDataURL}

	_, ok := c.Get(testContext(t), req)
	assert.False(t, ok)

	c.Set(testContext(t), req, &bridge.SizeResult{Width: 3, Height: 4})
	assert.Equal(t, 5*time.Minute, client.ttl)

	got, ok := c.Get(testContext(t), req)
	require.True(t, ok)
	assert.Equal(t, &bridge.SizeResult{Width: 3, Height: 4}, got)
}

func TestSizeCacheErrorsAreMisses(t *testing.T) {
	client := &mockRedis{values: map[string]string{}, err: errors.New("connection refused")}
	c := NewSizeCache(client, time.Minute, zap.NewNop())
	req := bridge.SizeRequest{Data: "x", ImageDataType: bridge.ImageDataURL}

	c.Set(testContext(t), req, &bridge.SizeResult{Width: 1, Height: 1})
	_, ok := c.Get(testContext(t), req)
	assert.False(t, ok)
}

func TestSizeCacheCorruptValue(t *testing.T) {
	req := bridge.SizeRequest{Data: "x", ImageDataType: bridge.ImageDataURL}
	client := &mockRedis{values: map[string]string{Key(req): "{not json"}}
	c := NewSizeCache(client, time.Minute, zap.NewNop())

	_, ok := c.Get(testContext(t), req)
	assert.False(t, ok)
}
