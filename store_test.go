package bowgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocStore_PutGet(t *testing.T) {
	s := newDocStore()

	assert.Equal(t, 0, s.len())
	assert.False(t, s.has("a"))

	s.put("a", []float32{1, 0})
	s.put("b", []float32{0, 1})

	assert.Equal(t, 2, s.len())
	assert.True(t, s.has("a"))

	tf, ok := s.get("b")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1}, tf)

	_, ok = s.get("c")
	assert.False(t, ok)

	key, tf := s.at(0)
	assert.Equal(t, "a", key)
	assert.Equal(t, []float32{1, 0}, tf)
}

func TestDocStore_DeletePreservesOrder(t *testing.T) {
	s := newDocStore()

	s.put("a", []float32{1})
	s.put("b", []float32{2})
	s.put("c", []float32{3})
	s.put("d", []float32{4})

	require.True(t, s.delete("b"))
	assert.False(t, s.delete("b"))

	assert.Equal(t, []string{"a", "c", "d"}, s.keyList())

	// Positions are reindexed after the removal.
	key, tf := s.at(1)
	assert.Equal(t, "c", key)
	assert.Equal(t, []float32{3}, tf)

	tf, ok := s.get("d")
	require.True(t, ok)
	assert.Equal(t, []float32{4}, tf)

	// Reinsertion lands at the end, not the old position.
	s.put("b", []float32{5})
	assert.Equal(t, []string{"a", "c", "d", "b"}, s.keyList())
}

func TestDocStore_KeyListIsCopy(t *testing.T) {
	s := newDocStore()

	s.put("a", []float32{1})
	s.put("b", []float32{2})

	keys := s.keyList()
	keys[0] = "mutated"

	fresh := s.keyList()
	assert.Equal(t, []string{"a", "b"}, fresh)
}
