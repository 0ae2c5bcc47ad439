package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_PushBelowCapacityKeepsOrder(t *testing.T) {
	l := New[int](3)
	l.Push(1)
	l.Push(2)

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []int{1, 2}, l.Oldest())
	assert.Equal(t, []int{2, 1}, l.Newest())
}

func TestLog_PushEvictsOldest(t *testing.T) {
	l := New[int](3)
	for i := 1; i <= 3; i++ {
		_, evicted := l.Push(i)
		require.False(t, evicted)
	}

	old, evicted := l.Push(4)
	require.True(t, evicted)
	assert.Equal(t, 1, old)
	assert.Equal(t, []int{2, 3, 4}, l.Oldest())

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, 4, last)
}

func TestLog_LengthNeverExceedsCap(t *testing.T) {
	l := New[int](5)
	for i := 0; i < 1000; i++ {
		l.Push(i)
		require.LessOrEqual(t, l.Len(), 5)
	}
	assert.Equal(t, []int{999, 998, 997, 996, 995}, l.Newest())
}

func TestLog_ZeroCapacityBecomesOne(t *testing.T) {
	l := New[string](0)
	l.Push("a")
	l.Push("b")
	assert.Equal(t, 1, l.Cap())
	assert.Equal(t, []string{"b"}, l.Oldest())
}

func TestLog_ResizeKeepsNewest(t *testing.T) {
	l := New[int](4)
	for i := 1; i <= 6; i++ {
		l.Push(i)
	}
	l.Resize(2)
	assert.Equal(t, []int{5, 6}, l.Oldest())

	l.Resize(4)
	l.Push(7)
	assert.Equal(t, []int{5, 6, 7}, l.Oldest())
}

func TestLog_ResetAndLastOnEmpty(t *testing.T) {
	l := New[int](2)
	l.Push(1)
	l.Reset()

	_, ok := l.Last()
	assert.False(t, ok)
	assert.Empty(t, l.Newest())
}
