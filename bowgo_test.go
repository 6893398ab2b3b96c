package bowgo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bowgo/testutil"
	"github.com/hupe1980/bowgo/vocab"
)

// newTestCatalog builds a catalog over a well-separated vocabulary so
// quantization assigns descriptors to unambiguous nearest words.
func newTestCatalog(t *testing.T, words, dim int, optFns ...Option) (*Catalog, [][]float32) {
	t.Helper()

	rng := testutil.NewRNG(42)
	matrix := rng.SeparatedVocabulary(words, dim, 10)

	v, err := vocab.NewVocabulary(matrix)
	require.NoError(t, err)

	c, err := New(v, optFns...)
	require.NoError(t, err)

	return c, matrix
}

func TestCatalog_Add(t *testing.T) {
	ctx := context.Background()
	c, words := newTestCatalog(t, 4, 8)

	require.NoError(t, c.Add(ctx, "images/a.jpg", testutil.StackedDescriptors(words, []int{2, 1, 0, 0})))
	require.NoError(t, c.Add(ctx, "images/b.jpg", testutil.StackedDescriptors(words, []int{0, 0, 3, 0})))

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Has("images/a.jpg"))
	assert.False(t, c.Has("images/c.jpg"))
	assert.Equal(t, []string{"images/a.jpg", "images/b.jpg"}, c.Keys())

	tf, err := c.TF("images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1, 0, 0}, tf)

	_, err = c.TF("images/c.jpg")
	var notFound *ErrKeyNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "images/c.jpg", notFound.Key)
}

func TestCatalog_AddDuplicateKey(t *testing.T) {
	ctx := context.Background()
	c, words := newTestCatalog(t, 4, 8)

	descriptors := testutil.StackedDescriptors(words, []int{1, 0, 0, 0})
	require.NoError(t, c.Add(ctx, "dup", descriptors))

	err := c.Add(ctx, "dup", descriptors)
	var dupErr *ErrDuplicateKey
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "dup", dupErr.Key)

	// The failed add must not disturb corpus statistics.
	assert.Equal(t, 1, c.NumDocs())
}

func TestCatalog_ReservedKeys(t *testing.T) {
	ctx := context.Background()
	c, words := newTestCatalog(t, 4, 8)

	descriptors := testutil.StackedDescriptors(words, []int{1, 0, 0, 0})

	for _, key := range []string{"vocabulary", "grid_radius", "grid_step"} {
		err := c.Add(ctx, key, descriptors)
		var reserved *ErrReservedKey
		require.ErrorAs(t, err, &reserved, "key %q", key)
		assert.Equal(t, key, reserved.Key)
	}

	assert.Equal(t, 0, c.Len())
}

func TestCatalog_AddTF(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t, 3, 8)

	tf := []float32{1, 2, 0}
	require.NoError(t, c.AddTF(ctx, "doc", tf))

	// The catalog copies the vector.
	tf[0] = 99
	stored, err := c.TF("doc")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 0}, stored)

	err = c.AddTF(ctx, "short", []float32{1, 2})
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
}

func TestCatalog_IDF(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t, 3, 8)

	require.NoError(t, c.AddTF(ctx, "a", []float32{3, 0, 0}))
	require.NoError(t, c.AddTF(ctx, "b", []float32{0, 2, 0}))
	require.NoError(t, c.AddTF(ctx, "c", []float32{1, 1, 0}))

	assert.Equal(t, 3, c.NumDocs())

	// Word 0 and 1 each appear in two documents, word 2 in none:
	// idf = log(3/(1+2)) = 0 and log(3/(1+0)) = log 3.
	idf := c.IDF()
	require.Len(t, idf, 3)
	assert.InDelta(t, 0, idf[0], 1e-6)
	assert.InDelta(t, 0, idf[1], 1e-6)
	assert.InDelta(t, math.Log(3), idf[2], 1e-6)
}

func TestCatalog_BatchAdd(t *testing.T) {
	ctx := context.Background()
	c, words := newTestCatalog(t, 4, 8)

	require.NoError(t, c.Add(ctx, "existing", testutil.StackedDescriptors(words, []int{1, 0, 0, 0})))

	result := c.BatchAdd(ctx, []Entry{
		{Key: "one", Descriptors: testutil.StackedDescriptors(words, []int{0, 1, 0, 0})},
		{Key: "existing", Descriptors: testutil.StackedDescriptors(words, []int{0, 1, 0, 0})},
		{Key: "vocabulary", Descriptors: testutil.StackedDescriptors(words, []int{0, 1, 0, 0})},
		{Key: "two", TF: []float32{0, 0, 2, 0}},
		{Key: "bad-tf", TF: []float32{1}},
	})

	assert.Equal(t, []string{"one", "two"}, result.Added)

	require.Len(t, result.Errors, 5)
	assert.NoError(t, result.Errors[0])

	var dupErr *ErrDuplicateKey
	assert.ErrorAs(t, result.Errors[1], &dupErr)

	var reserved *ErrReservedKey
	assert.ErrorAs(t, result.Errors[2], &reserved)

	assert.NoError(t, result.Errors[3])

	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, result.Errors[4], &dimErr)

	// Insertion order: sequential in input order, failures skipped.
	assert.Equal(t, []string{"existing", "one", "two"}, c.Keys())
}

func TestCatalog_Remove(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t, 3, 8)

	require.NoError(t, c.AddTF(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, c.AddTF(ctx, "b", []float32{0, 1, 0}))
	require.NoError(t, c.AddTF(ctx, "c", []float32{0, 0, 1}))

	require.NoError(t, c.Remove(ctx, "b"))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a", "c"}, c.Keys())

	// Statistics are not rolled back.
	assert.Equal(t, 3, c.NumDocs())

	err := c.Remove(ctx, "b")
	var notFound *ErrKeyNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestNew_NilVocabulary(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestCatalog_GridParams(t *testing.T) {
	c, _ := newTestCatalog(t, 3, 8)

	_, ok := c.GridParams()
	assert.False(t, ok)

	c.SetGridParams(GridParams{Radius: 7.5, Step: 12})

	p, ok := c.GridParams()
	require.True(t, ok)
	assert.Equal(t, 7.5, p.Radius)
	assert.Equal(t, 12.0, p.Step)
}

func TestCatalog_MetricsCollector(t *testing.T) {
	ctx := context.Background()

	metrics := &BasicMetricsCollector{}
	c, words := newTestCatalog(t, 4, 8, WithMetricsCollector(metrics))

	require.NoError(t, c.Add(ctx, "a", testutil.StackedDescriptors(words, []int{1, 0, 0, 0})))

	_, err := c.Query(ctx, testutil.StackedDescriptors(words, []int{1, 0, 0, 0}))
	require.NoError(t, err)

	require.NoError(t, c.Remove(ctx, "a"))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.AddCount)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.RemoveCount)
	assert.Equal(t, int64(0), stats.AddErrors)
}
