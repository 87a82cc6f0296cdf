package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func l2(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestNormalize_UnitNorm(t *testing.T) {
	vecs := [][]float32{
		{3, 4},
		{1, 1, 1, 1},
		{-2, 0, 0, 5, 0.25},
		{1e-3, 1e-3},
	}
	for _, vec := range vecs {
		Normalize(vec)
		assert.InDelta(t, 1.0, l2(vec), 1e-6, "vector %v should have unit norm", vec)
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	vec := []float32{0, 0, 0}
	Normalize(vec)
	assert.Equal(t, []float32{0, 0, 0}, vec, "zero vector must stay zero")
}

// TestNormalize_DotEqualsCosine checks that on normalized vectors the dot
// product matches cosine similarity computed on the originals.
func TestNormalize_DotEqualsCosine(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-4, 5, 0.5}

	cosine := dot(a, b) / (l2(a) * l2(b))

	Normalize(a)
	Normalize(b)
	assert.InDelta(t, cosine, dot(a, b), 1e-6)
}
