package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/nelson-backend/internal/entity"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, -1}, []float32{-1, 1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
		assert.ErrorIs(t, err, entity.ErrDimensionMismatch)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float32{0.3, -0.2, 0.9}
		b := []float32{0.1, 0.4, 0.5}
		ab, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		ba, err := CosineSimilarity(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	})
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Norm(v), 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestHashEmbed(t *testing.T) {
	t.Run("deterministic unit vector", func(t *testing.T) {
		a := HashEmbed("fever in infants", 384)
		b := HashEmbed("fever in infants", 384)
		require.Len(t, a, 384)
		assert.Equal(t, a, b)
		assert.InDelta(t, 1.0, Norm(a), 1e-5)
	})

	t.Run("empty text gives the zero vector", func(t *testing.T) {
		v := HashEmbed("   ", 64)
		require.Len(t, v, 64)
		assert.Zero(t, Norm(v))
	})

	t.Run("dimension too small for the spread", func(t *testing.T) {
		v := HashEmbed("fever", spread)
		assert.Len(t, v, spread)
		assert.Zero(t, Norm(v))
	})

	t.Run("shared tokens raise similarity", func(t *testing.T) {
		query := HashEmbed("kawasaki disease treatment", 384)
		related := HashEmbed("treatment of kawasaki disease with ivig", 384)
		unrelated := HashEmbed("bronchiolitis respiratory syncytial virus", 384)

		simRelated, err := CosineSimilarity(query, related)
		require.NoError(t, err)
		simUnrelated, err := CosineSimilarity(query, unrelated)
		require.NoError(t, err)
		assert.Greater(t, simRelated, simUnrelated)
	})

	t.Run("weights depend on the spread offset, not token order", func(t *testing.T) {
		assert.Equal(t, HashEmbed("fever rash", 64), HashEmbed("rash fever", 64))

		v := HashEmbed("fever", 64)
		offset := int(hashToken("fever") % uint32(64-spread))
		assert.InDelta(t, 2*v[offset+1], v[offset], 1e-6)
		assert.InDelta(t, 10*v[offset+9], v[offset], 1e-6)
	})
}
