// Package testutil provides deterministic generators for descriptor and
// vocabulary test data.
package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// UniformDescriptors generates random descriptors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformDescriptors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	descriptors := make([][]float32, num)

	for i := range num {
		d := data[i*dim : (i+1)*dim]
		for j := range d {
			d[j] = r.rand.Float32()
		}
		descriptors[i] = d
	}

	return descriptors
}

// Vocabulary generates a random word matrix with values in range [0, 1).
func (r *RNG) Vocabulary(words, dim int) [][]float32 {
	return r.UniformDescriptors(words, dim)
}

// SeparatedVocabulary generates words on the scaled unit hypersphere.
// In high dimensions random unit vectors are nearly orthogonal, so the words
// sit roughly scale*sqrt(2) apart: descriptors drawn around them with a small
// spread have an unambiguous nearest word.
func (r *RNG) SeparatedVocabulary(words, dim int, scale float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, words*dim)
	matrix := make([][]float32, words)

	for i := range words {
		w := data[i*dim : (i+1)*dim]

		var norm float64
		for j := range w {
			v := r.rand.NormFloat64()
			w[j] = float32(v)
			norm += v * v
		}

		if norm == 0 {
			norm = 1
		}

		inv := scale / float32(math.Sqrt(norm))
		for j := range w {
			w[j] *= inv
		}

		matrix[i] = w
	}

	return matrix
}

// DescriptorsAround generates descriptors clustered around a word with
// Gaussian noise of the given spread.
func (r *RNG) DescriptorsAround(word []float32, num int, spread float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	dim := len(word)
	data := make([]float32, num*dim)
	descriptors := make([][]float32, num)

	for i := range num {
		d := data[i*dim : (i+1)*dim]
		for j := range d {
			d[j] = word[j] + float32(r.rand.NormFloat64())*spread
		}
		descriptors[i] = d
	}

	return descriptors
}

// StackedDescriptors repeats each word counts[i] times, producing a batch
// whose exact quantization reproduces counts as its term-frequency vector.
func StackedDescriptors(words [][]float32, counts []int) [][]float32 {
	var descriptors [][]float32
	for i, n := range counts {
		for range n {
			descriptors = append(descriptors, words[i])
		}
	}

	return descriptors
}

// BruteForceNearest returns the index of the word closest to q in squared L2
// distance, lowest index on ties. Used as ground truth for quantizer tests.
func BruteForceNearest(words [][]float32, q []float32) int {
	best := 0
	bestDist := squaredL2(words[0], q)

	for i := 1; i < len(words); i++ {
		if d := squaredL2(words[i], q); d < bestDist {
			bestDist = d
			best = i
		}
	}

	return best
}

func squaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}
