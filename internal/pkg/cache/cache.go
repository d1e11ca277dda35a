// Package cache stores embedding vectors keyed by the hash of their text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const keyPrefix = "emb:"

// Key derives the cache key for a model and a text.
func Key(model, text string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// Memory is a process-local vector cache.
type Memory struct {
	store *gocache.Cache
	ttl   time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]float32, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

func (m *Memory) Set(_ context.Context, key string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	m.store.Set(key, stored, m.ttl)
}

func (m *Memory) Len() int {
	return m.store.ItemCount()
}
