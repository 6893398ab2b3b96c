// Package vocab provides visual vocabularies and descriptor quantization.
// A vocabulary is an immutable set of K visual words (D-dimensional centroids);
// a Quantizer maps raw descriptors onto their nearest words and accumulates
// bag-of-words term-frequency vectors.
package vocab

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyVocabulary is returned when a vocabulary has no words.
	ErrEmptyVocabulary = errors.New("vocabulary has no words")
)

// ErrDimensionMismatch indicates a descriptor/vocabulary dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Vocabulary is an immutable K×D matrix of visual words, stored flattened
// in row-major order. It is safe for concurrent use once constructed.
type Vocabulary struct {
	flat  []float32
	words int
	dim   int
}

// NewVocabulary creates a vocabulary from K word vectors of equal width.
// The rows are copied; the caller keeps ownership of the input.
func NewVocabulary(words [][]float32) (*Vocabulary, error) {
	if len(words) == 0 {
		return nil, ErrEmptyVocabulary
	}

	dim := len(words[0])
	if dim == 0 {
		return nil, &ErrDimensionMismatch{Expected: 1, Actual: 0}
	}

	flat := make([]float32, 0, len(words)*dim)
	for _, w := range words {
		if len(w) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(w)}
		}
		flat = append(flat, w...)
	}

	return &Vocabulary{flat: flat, words: len(words), dim: dim}, nil
}

// FromFlat creates a vocabulary from a flattened row-major K×D matrix.
// The slice is retained without copying; the caller must not mutate it.
func FromFlat(flat []float32, dim int) (*Vocabulary, error) {
	if dim <= 0 {
		return nil, &ErrDimensionMismatch{Expected: 1, Actual: dim}
	}
	if len(flat) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(flat)%dim != 0 {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(flat) % dim}
	}

	return &Vocabulary{flat: flat, words: len(flat) / dim, dim: dim}, nil
}

// Words returns the number of visual words K.
func (v *Vocabulary) Words() int { return v.words }

// Dim returns the descriptor dimensionality D.
func (v *Vocabulary) Dim() int { return v.dim }

// Word returns the i-th word as a view into the matrix.
// Callers must not mutate the returned slice.
func (v *Vocabulary) Word(i int) []float32 {
	return v.flat[i*v.dim : (i+1)*v.dim]
}

// Flat returns the flattened row-major K×D matrix.
// Callers must not mutate the returned slice.
func (v *Vocabulary) Flat() []float32 { return v.flat }
