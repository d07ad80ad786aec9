// Package pool is a generational slot map. Handles stay valid until their
// slot is removed; a reused slot gets a new generation so stale handles
// never alias a newer entity.
package pool

import "fmt"

type Handle struct {
	index uint32
	gen   uint32
}

// Nil is the zero handle; it never resolves.
var Nil Handle

func (h Handle) IsNil() bool    { return h.gen == 0 }
func (h Handle) String() string { return fmt.Sprintf("%d:%d", h.index, h.gen) }

// ID packs the handle into one integer for wire formats.
func (h Handle) ID() uint64 { return uint64(h.gen)<<32 | uint64(h.index) }

func HandleFromID(id uint64) Handle { return Handle{index: uint32(id), gen: uint32(id >> 32)} }

type slot[T any] struct {
	gen   uint32
	alive bool
	val   T
}

type Pool[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func New[T any](capacity int) *Pool[T] {
	return &Pool[T]{slots: make([]slot[T], 0, capacity)}
}

func (p *Pool[T]) Len() int { return p.live }

func (p *Pool[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = uint32(len(p.slots))
		p.slots = append(p.slots, slot[T]{})
	}
	s := &p.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.alive = true
	s.val = v
	p.live++
	return Handle{index: idx, gen: s.gen}
}

// Get returns a pointer valid until the next Insert.
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	if int(h.index) >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.index]
	if !s.alive || s.gen != h.gen || h.gen == 0 {
		return nil, false
	}
	return &s.val, true
}

func (p *Pool[T]) Contains(h Handle) bool {
	_, ok := p.Get(h)
	return ok
}

func (p *Pool[T]) Remove(h Handle) bool {
	if _, ok := p.Get(h); !ok {
		return false
	}
	s := &p.slots[h.index]
	var zero T
	s.val = zero
	s.alive = false
	p.free = append(p.free, h.index)
	p.live--
	return true
}

// Each visits live entries in slot order. Removing the visited handle (or
// any other) during the walk is allowed; inserted entries may or may not be
// visited.
func (p *Pool[T]) Each(fn func(h Handle, v *T) bool) {
	for i := 0; i < len(p.slots); i++ {
		s := &p.slots[i]
		if !s.alive {
			continue
		}
		if !fn(Handle{index: uint32(i), gen: s.gen}, &s.val) {
			return
		}
	}
}

// Handles snapshots the live handles in slot order.
func (p *Pool[T]) Handles() []Handle {
	out := make([]Handle, 0, p.live)
	p.Each(func(h Handle, _ *T) bool {
		out = append(out, h)
		return true
	})
	return out
}

func (p *Pool[T]) Clear() {
	for i := range p.slots {
		s := &p.slots[i]
		if s.alive {
			var zero T
			s.val = zero
			s.alive = false
			p.free = append(p.free, uint32(i))
		}
	}
	p.live = 0
}
