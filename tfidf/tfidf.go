// Package tfidf maintains incremental corpus statistics for bag-of-words
// retrieval: per-word document counts, the corpus size, and the derived
// inverse document frequency vector.
package tfidf

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// ErrDimensionMismatch indicates a term-frequency vector of the wrong width.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// statsState holds one immutable snapshot of the corpus statistics.
// Published states are never mutated, so a reader holding a snapshot sees
// document counts and IDF values from the same moment.
type statsState struct {
	docCount []uint32
	numDocs  uint64
	idf      []float32
}

// Stats tracks how many documents contain each visual word and derives
// idf[w] = log(numDocs / (1 + docCount[w])) from it.
//
// Observe swaps in a freshly computed state (copy-on-write); readers are
// lock-free and always observe one consistent snapshot.
type Stats struct {
	state   atomic.Value // holds *statsState
	writeMu sync.Mutex   // serializes observers
	words   int
}

// NewStats creates corpus statistics over a vocabulary of the given size.
func NewStats(words int) *Stats {
	s := &Stats{words: words}
	s.state.Store(&statsState{
		docCount: make([]uint32, words),
		idf:      make([]float32, words),
	})

	return s
}

func (s *Stats) getState() *statsState {
	return s.state.Load().(*statsState)
}

// Words returns the vocabulary size K.
func (s *Stats) Words() int { return s.words }

// Observe folds one document's term-frequency vector into the statistics and
// recomputes the IDF vector. The cost is O(K) regardless of corpus size;
// nothing is ever rescanned.
//
// There is no reverse operation: removing a document from a catalog does not
// roll its observation back.
func (s *Stats) Observe(tf []float32) error {
	if len(tf) != s.words {
		return &ErrDimensionMismatch{Expected: s.words, Actual: len(tf)}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old := s.getState()

	next := &statsState{
		docCount: make([]uint32, s.words),
		numDocs:  old.numDocs + 1,
		idf:      make([]float32, s.words),
	}
	copy(next.docCount, old.docCount)

	for w, count := range tf {
		if count > 0 {
			next.docCount[w]++
		}
	}

	n := float64(next.numDocs)
	for w, df := range next.docCount {
		next.idf[w] = float32(math.Log(n / float64(1+df)))
	}

	s.state.Store(next)

	return nil
}

// IDF returns the current IDF vector. Before any document was observed it is
// all zeros. Callers must not mutate the returned slice; it is shared with
// concurrent readers.
func (s *Stats) IDF() []float32 {
	return s.getState().idf
}

// NumDocs returns the number of observed documents.
func (s *Stats) NumDocs() int {
	return int(s.getState().numDocs)
}

// DocCount returns the number of observed documents containing word w.
func (s *Stats) DocCount(w int) int {
	return int(s.getState().docCount[w])
}

// Weigh returns the TF-IDF vector tf[w] * idf[w].
// Assumes len(tf) == len(idf); callers must ensure widths match.
func Weigh(tf, idf []float32) []float32 {
	return WeighInto(make([]float32, len(tf)), tf, idf)
}

// WeighInto writes the TF-IDF vector into dst and returns it.
// Assumes equal widths; callers must ensure they match.
func WeighInto(dst, tf, idf []float32) []float32 {
	for w := range tf {
		dst[w] = tf[w] * idf[w]
	}

	return dst
}
