package vector

import (
	"hash/fnv"
	"strings"
)

// spread is the number of contiguous dimensions each token touches.
const spread = 10

// HashEmbed builds a deterministic bag-of-tokens vector of the given
// dimension. Every whitespace token adds 1/(position+1) to the spread
// dimensions starting at fnv32a(token) mod (dim-spread), where position is
// the offset inside the spread, so token order does not matter. The result is
// L2-normalized, empty text gives the zero vector.
func HashEmbed(text string, dim int) []float32 {
	vec := make([]float32, dim)
	if dim <= spread {
		return vec
	}

	sum := make([]float64, dim)
	for _, token := range strings.Fields(text) {
		offset := int(hashToken(token) % uint32(dim-spread))
		for pos := 0; pos < spread; pos++ {
			sum[offset+pos] += 1.0 / float64(pos+1)
		}
	}

	for i, x := range sum {
		vec[i] = float32(x)
	}
	return Normalize(vec)
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}
