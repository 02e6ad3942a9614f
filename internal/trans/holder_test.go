package trans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_MergeAndGet(t *testing.T) {
	h := NewHolder()
	assert.True(t, h.IsEmpty())

	h.Merge(map[string]string{
		"Hello": "你好",
		"World": "世界",
	})

	got, ok := h.Get("Hello")
	require.True(t, ok)
	assert.Equal(t, "你好", got)

	_, ok = h.Get("Missing")
	assert.False(t, ok)
	assert.Equal(t, 2, h.Len())
}

func TestHolder_MergeIsIdempotent(t *testing.T) {
	h := NewHolder()
	entries := map[string]string{"Hello": "你好"}

	h.Merge(entries)
	h.Merge(entries)

	assert.Equal(t, 1, h.Len())
	got, _ := h.Get("Hello")
	assert.Equal(t, "你好", got)
}

func TestHolder_LastWriteWins(t *testing.T) {
	h := NewHolder()
	h.Merge(map[string]string{"Hello": "first"})
	h.Merge(map[string]string{"Hello": "second"})

	got, _ := h.Get("Hello")
	assert.Equal(t, "second", got)
}

func TestHolder_OrderIndependentForDisjointKeys(t *testing.T) {
	a := NewHolder()
	a.Merge(map[string]string{"one": "1"})
	a.Merge(map[string]string{"two": "2"})

	b := NewHolder()
	b.Merge(map[string]string{"two": "2"})
	b.Merge(map[string]string{"one": "1"})

	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestHolder_EmptyTranslationIsPresent(t *testing.T) {
	h := HolderFrom(map[string]string{"Hello": ""})

	got, ok := h.Get("Hello")
	require.True(t, ok)
	assert.Empty(t, got)
	assert.False(t, h.IsEmpty())
}

func TestHolder_NilSafe(t *testing.T) {
	var h *Holder
	h.Merge(map[string]string{"x": "y"})
	_, ok := h.Get("x")
	assert.False(t, ok)
	assert.True(t, h.IsEmpty())
	assert.Nil(t, h.Snapshot())
}
