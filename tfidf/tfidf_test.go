package tfidf

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsObserve(t *testing.T) {
	s := NewStats(4)

	assert.Equal(t, 4, s.Words())
	assert.Equal(t, 0, s.NumDocs())
	assert.Equal(t, []float32{0, 0, 0, 0}, s.IDF())

	require.NoError(t, s.Observe([]float32{2, 0, 1, 0}))
	require.NoError(t, s.Observe([]float32{1, 0, 0, 0}))
	require.NoError(t, s.Observe([]float32{0, 3, 1, 0}))

	assert.Equal(t, 3, s.NumDocs())
	assert.Equal(t, 2, s.DocCount(0))
	assert.Equal(t, 1, s.DocCount(1))
	assert.Equal(t, 2, s.DocCount(2))
	assert.Equal(t, 0, s.DocCount(3))

	idf := s.IDF()
	require.Len(t, idf, 4)

	// idf[w] = log(numDocs / (1 + docCount[w]))
	assert.InDelta(t, math.Log(3.0/3.0), idf[0], 1e-5)
	assert.InDelta(t, math.Log(3.0/2.0), idf[1], 1e-5)
	assert.InDelta(t, math.Log(3.0/3.0), idf[2], 1e-5)
	assert.InDelta(t, math.Log(3.0/1.0), idf[3], 1e-5)
}

func TestStatsObserveDimensionMismatch(t *testing.T) {
	s := NewStats(4)

	err := s.Observe([]float32{1, 2})

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
	assert.Equal(t, 0, s.NumDocs())
}

func TestStatsSnapshotIsolation(t *testing.T) {
	s := NewStats(3)

	require.NoError(t, s.Observe([]float32{1, 0, 0}))

	before := s.IDF()
	beforeCopy := append([]float32(nil), before...)

	require.NoError(t, s.Observe([]float32{0, 1, 0}))
	require.NoError(t, s.Observe([]float32{0, 0, 1}))

	// The previously published slice is never mutated in place.
	assert.Equal(t, beforeCopy, before)
	assert.NotEqual(t, beforeCopy, s.IDF())
}

func TestStatsConcurrentReaders(t *testing.T) {
	s := NewStats(8)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		tf := make([]float32, 8)
		for i := 0; i < 200; i++ {
			tf[i%8] = float32(i + 1)
			_ = s.Observe(tf)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				idf := s.IDF()
				n := s.NumDocs()
				assert.Len(t, idf, 8)
				assert.LessOrEqual(t, n, 200)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 200, s.NumDocs())
}

func TestWeigh(t *testing.T) {
	tf := []float32{2, 0, 1}
	idf := []float32{0.5, 3, -1}

	got := Weigh(tf, idf)
	assert.Equal(t, []float32{1, 0, -1}, got)

	// Inputs stay untouched.
	assert.Equal(t, []float32{2, 0, 1}, tf)

	dst := make([]float32, 3)
	got = WeighInto(dst, tf, idf)
	assert.Equal(t, []float32{1, 0, -1}, dst)
	assert.Equal(t, &dst[0], &got[0])
}
