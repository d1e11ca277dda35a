package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("model-a", "fever")
	assert.Equal(t, a, Key("model-a", "fever"))
	assert.NotEqual(t, a, Key("model-b", "fever"), "model is part of the key")
	assert.NotEqual(t, a, Key("model-a", "Fever"))
	assert.Regexp(t, `^emb:[0-9a-f]{64}$`, a)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	vec := []float32{0.1, 0.2}
	m.Set(ctx, "k", vec)
	vec[0] = 9

	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, got, "stored value is a copy")

	got[1] = 9
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, float32(0.2), again[1], "returned value is a copy")
	assert.Equal(t, 1, m.Len())
}

func TestRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	r, err := NewRedisFromURL(ctx, "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer r.Close()

	t.Run("round trip with ttl", func(t *testing.T) {
		r.Set(ctx, "emb:a", []float32{1, 0.5})

		got, ok := r.Get(ctx, "emb:a")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 0.5}, got)
		assert.Equal(t, time.Minute, mr.TTL("emb:a"))

		mr.FastForward(2 * time.Minute)
		_, ok = r.Get(ctx, "emb:a")
		assert.False(t, ok)
	})

	t.Run("corrupt entries are dropped", func(t *testing.T) {
		require.NoError(t, mr.Set("emb:bad", "not json"))

		_, ok := r.Get(ctx, "emb:bad")
		assert.False(t, ok)
		assert.False(t, mr.Exists("emb:bad"))
	})

	t.Run("server down is a miss", func(t *testing.T) {
		down := NewRedis(goredis.NewClient(&goredis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}), time.Minute)
		defer down.Close()

		down.Set(ctx, "emb:x", []float32{1})
		_, ok := down.Get(ctx, "emb:x")
		assert.False(t, ok)
	})
}

func TestNewRedisFromURL_Errors(t *testing.T) {
	_, err := NewRedisFromURL(context.Background(), "not-a-url", time.Minute)
	assert.Error(t, err)
}
