package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportKey(t *testing.T) {
	a := ExportKey("xml", 3, "repo-1", []string{"Step", "Hole"})
	b := ExportKey("xml", 3, "repo-1", []string{"Hole", "Step"})
	assert.Equal(t, a, b, "label order does not matter")
	assert.True(t, strings.HasPrefix(a, "export:xml:3:"))

	tests := []struct {
		name string
		key  string
	}{
		{"generation", ExportKey("xml", 4, "repo-1", []string{"Step", "Hole"})},
		{"repository", ExportKey("xml", 3, "", []string{"Step", "Hole"})},
		{"labels", ExportKey("xml", 3, "repo-1", []string{"Step"})},
		{"format", ExportKey("selective", 3, "repo-1", []string{"Step", "Hole"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, a, tt.key)
		})
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)
	defer m.Close()

	_, ok, err := m.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	data := []byte("<xml/>")
	require.NoError(t, m.Store(ctx, "k", data))
	data[0] = 'X'

	got, ok, err := m.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<xml/>", string(got), "stored bytes are copied")

	require.NoError(t, m.Purge(ctx))
	_, ok, _ = m.Lookup(ctx, "k")
	assert.False(t, ok)
}

// Integration test - requires Redis
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	c, err := NewClient(ctx, RedisConfig{Addr: addr, TTL: time.Minute}, nil)
	require.NoError(t, err)
	defer c.Close()

	key := ExportKey("xml", uint64(time.Now().UnixNano()), "", nil)
	require.NoError(t, c.Store(ctx, key, []byte("payload")))

	got, ok, err := c.Lookup(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "payload", string(got))

	require.NoError(t, c.Delete(ctx, key))
	_, ok, err = c.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
