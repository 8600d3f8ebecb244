// Package cache holds rendered exports keyed by snapshot generation so
// repeated requests against an unchanged graph skip the store round-trips.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL bounds how long a rendered export is kept.
const DefaultTTL = 15 * time.Minute

const keyPrefix = "export:"

// Store is a byte cache for rendered documents.
type Store interface {
	Lookup(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, data []byte) error
	Purge(ctx context.Context) error
	Close() error
}

// ExportKey identifies a rendered export. The snapshot generation is part of
// the key, so any graph mutation makes older entries unreachable.
func ExportKey(format string, generation uint64, repositoryID string, labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s", repositoryID, strings.Join(sorted, "\x00"))
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, format, generation, hex.EncodeToString(h.Sum(nil))[:16])
}

// Memory is the in-process cache used when Redis is not configured.
type Memory struct {
	c *gocache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

func (m *Memory) Store(_ context.Context, key string, data []byte) error {
	m.c.SetDefault(key, append([]byte(nil), data...))
	return nil
}

func (m *Memory) Purge(context.Context) error {
	m.c.Flush()
	return nil
}

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

// Nop never hits.
type Nop struct{}

func (Nop) Lookup(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Store(context.Context, string, []byte) error { return nil }
func (Nop) Purge(context.Context) error { return nil }
func (Nop) Close() error { return nil }
