package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_FIFOUpToCapacity(t *testing.T) {
	const capacity = 128
	r := NewRing[int](capacity)

	for i := 0; i < capacity-1; i++ {
		require.NoError(t, r.Push(i), "push %d", i)
	}
	assert.Equal(t, capacity-1, r.Len())

	for i := 0; i < capacity-1; i++ {
		v, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.True(t, r.Empty())
}

func TestRing_PushFullIsRejected(t *testing.T) {
	r := NewRing[string](4)
	require.NoError(t, r.Push("a"))
	require.NoError(t, r.Push("b"))
	require.NoError(t, r.Push("c"))

	err := r.Push("d")
	assert.ErrorIs(t, err, ErrFull)

	// The rejected push must not have touched queued values.
	got := []string{}
	for !r.Empty() {
		v, _ := r.Pop()
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRing_PopEmpty(t *testing.T) {
	r := NewRing[int](8)
	v, ok := r.Pop()
	assert.False(t, ok)
	assert.Zero(t, v)

	_, ok = r.Peek()
	assert.False(t, ok)
}

func TestRing_Wraparound(t *testing.T) {
	r := NewRing[int](5)
	next := 0
	want := 0

	// Interleave pushes and pops so the cursors wrap several times.
	for round := 0; round < 20; round++ {
		for i := 0; i < 3; i++ {
			require.NoError(t, r.Push(next))
			next++
		}
		assert.Equal(t, 3, r.Len())
		for i := 0; i < 3; i++ {
			v, ok := r.Pop()
			require.True(t, ok)
			assert.Equal(t, want, v)
			want++
		}
	}
	assert.Equal(t, 0, r.Len())
}

func TestRing_PopClearsSlot(t *testing.T) {
	type handle struct{ id int }
	r := NewRing[*handle](3)
	require.NoError(t, r.Push(&handle{id: 1}))
	_, ok := r.Pop()
	require.True(t, ok)
	assert.Nil(t, r.buf[0])
}

func TestRing_Each(t *testing.T) {
	r := NewRing[int](4)
	for _, v := range []int{7, 8, 9} {
		require.NoError(t, r.Push(v))
	}
	r.Pop()
	require.NoError(t, r.Push(10))

	var got []int
	r.Each(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{8, 9, 10}, got)
}

func TestNewRing_PanicsOnTinyCapacity(t *testing.T) {
	assert.Panics(t, func() { NewRing[int](1) })
}
