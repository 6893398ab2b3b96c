package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniformDescriptors(t *testing.T) {
	rng := NewRNG(4711)

	d := rng.UniformDescriptors(8, 32)

	assert.Equal(t, 8, len(d))
	assert.Equal(t, 32, len(d[0]))
	assert.LessOrEqual(t, d[0][0], float32(1.0))
	assert.GreaterOrEqual(t, d[1][0], float32(0.0))
}

func TestDeterminism(t *testing.T) {
	a := NewRNG(42).UniformDescriptors(4, 16)
	b := NewRNG(42).UniformDescriptors(4, 16)

	assert.Equal(t, a, b)
}

func TestReset(t *testing.T) {
	rng := NewRNG(7)

	first := rng.UniformDescriptors(2, 8)
	rng.Reset()
	second := rng.UniformDescriptors(2, 8)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(7), rng.Seed())
}

func TestSeparatedVocabulary(t *testing.T) {
	rng := NewRNG(1)

	words := rng.SeparatedVocabulary(10, 64, 100)

	assert.Equal(t, 10, len(words))
	for _, w := range words {
		var norm2 float32
		for _, v := range w {
			norm2 += v * v
		}
		assert.InDelta(t, float32(100*100), norm2, 1)
	}
}

func TestDescriptorsAround(t *testing.T) {
	rng := NewRNG(1)

	words := rng.SeparatedVocabulary(5, 32, 50)
	descriptors := rng.DescriptorsAround(words[3], 20, 0.1)

	assert.Equal(t, 20, len(descriptors))
	for _, d := range descriptors {
		assert.Equal(t, 3, BruteForceNearest(words, d))
	}
}

func TestStackedDescriptors(t *testing.T) {
	words := [][]float32{{1, 0}, {0, 1}, {1, 1}}

	descriptors := StackedDescriptors(words, []int{2, 0, 3})

	assert.Equal(t, 5, len(descriptors))
	assert.Equal(t, words[0], descriptors[0])
	assert.Equal(t, words[0], descriptors[1])
	assert.Equal(t, words[2], descriptors[2])
}

func TestBruteForceNearest(t *testing.T) {
	words := [][]float32{{0, 0}, {10, 0}, {0, 10}}

	assert.Equal(t, 0, BruteForceNearest(words, []float32{1, 1}))
	assert.Equal(t, 1, BruteForceNearest(words, []float32{9, 1}))
	assert.Equal(t, 2, BruteForceNearest(words, []float32{1, 9}))

	// Equidistant query keeps the lowest index.
	assert.Equal(t, 1, BruteForceNearest([][]float32{{2, 0}, {1, 0}, {-1, 0}, {-2, 0}}, []float32{0, 0}))
}
