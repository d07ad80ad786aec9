package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPool_StaleHandleAfterReuse(t *testing.T) {
	p := New[string](4)
	a := p.Insert("a")
	require.True(t, p.Remove(a))
	assert.False(t, p.Remove(a))

	b := p.Insert("b")
	assert.Equal(t, a.index, b.index, "slot reused")
	_, ok := p.Get(a)
	assert.False(t, ok, "old generation must not resolve")
	v, ok := p.Get(b)
	require.True(t, ok)
	assert.Equal(t, "b", *v)
	assert.True(t, Nil.IsNil())
	_, ok = p.Get(Nil)
	assert.False(t, ok)
}

func TestPool_RemoveDuringEach(t *testing.T) {
	p := New[int](8)
	for i := 0; i < 6; i++ {
		p.Insert(i)
	}
	var seen []int
	p.Each(func(h Handle, v *int) bool {
		seen = append(seen, *v)
		if *v%2 == 0 {
			p.Remove(h)
		}
		return true
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, seen)
	assert.Equal(t, 3, p.Len())

	var left []int
	p.Each(func(_ Handle, v *int) bool {
		left = append(left, *v)
		return true
	})
	assert.Equal(t, []int{1, 3, 5}, left)
}

func TestPool_IDRoundTrip(t *testing.T) {
	p := New[int](1)
	h := p.Insert(7)
	assert.Equal(t, h, HandleFromID(h.ID()))
	p.Clear()
	assert.Zero(t, p.Len())
	assert.False(t, p.Contains(h))
}

func TestPool_LenTracksLiveEntries(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := New[int](0)
		var live []Handle
		ops := rapid.SliceOfN(rapid.Bool(), 1, 200).Draw(t, "ops")
		for i, insert := range ops {
			if insert || len(live) == 0 {
				live = append(live, p.Insert(i))
				continue
			}
			k := rapid.IntRange(0, len(live)-1).Draw(t, "victim")
			if !p.Remove(live[k]) {
				t.Fatalf("remove of live handle failed")
			}
			live = append(live[:k], live[k+1:]...)
		}
		if p.Len() != len(live) {
			t.Fatalf("Len=%d want %d", p.Len(), len(live))
		}
		for _, h := range live {
			if !p.Contains(h) {
				t.Fatalf("handle %s lost", h)
			}
		}
	})
}
