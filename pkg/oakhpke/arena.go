package oakhpke

import (
	"fmt"
	"sync"
)

// Handle is an opaque token for a value stored in the boundary. The zero
// value is the null handle.
//
// A non-null handle packs a slot index and that slot's generation:
//
//	bits 21..35  generation (15 bits, never zero)
//	bits  1..20  slot index (20 bits)
//	bit   0      always 1
//
// Every handle is odd and below 2^36, so it can cross the C ABI as a
// pointer-sized token that is never a valid object address.
type Handle uint64

// NullHandle is the sentinel returned when an operation fails.
const NullHandle Handle = 0

const (
	indexBits      = 20
	generationBits = 15
	maxSlots       = 1 << indexBits
	maxGeneration  = 1<<generationBits - 1
)

func makeHandle(index uint32, generation uint16) Handle {
	return Handle(uint64(generation)<<(indexBits+1) | uint64(index)<<1 | 1)
}

func (h Handle) split() (index uint32, generation uint16, ok bool) {
	if h&1 == 0 || h>>(indexBits+generationBits+1) != 0 {
		return 0, 0, false
	}
	index = uint32(h>>1) & (maxSlots - 1)
	generation = uint16(h >> (indexBits + 1))
	return index, generation, generation != 0
}

// IsNull reports whether h is the null handle.
func (h Handle) IsNull() bool { return h == NullHandle }

func (h Handle) String() string {
	index, generation, ok := h.split()
	if !ok {
		return fmt.Sprintf("handle(%d)", uint64(h))
	}
	return fmt.Sprintf("handle(%d@%d)", index, generation)
}

type slot[T any] struct {
	generation uint16
	live       bool
	value      T
}

// arena maps handles to live values. A released slot is reused with its
// generation advanced, so a stale handle to the slot no longer resolves.
type arena[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
	live  int
	limit int
}

func newArena[T any](limit int) *arena[T] {
	if limit <= 0 || limit > maxSlots {
		limit = maxSlots
	}
	return &arena[T]{limit: limit}
}

// insert stores v and returns its handle. It fails with ErrHandleLimit when
// the arena is full.
func (a *arena[T]) insert(v T) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.live >= a.limit {
		return NullHandle, ErrHandleLimit
	}

	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}

	s := &a.slots[index]
	s.generation++
	if s.generation == 0 || s.generation > maxGeneration {
		s.generation = 1
	}
	s.live = true
	s.value = v
	a.live++
	return makeHandle(index, s.generation), nil
}

// get returns the value stored under h.
func (a *arena[T]) get(h Handle) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// remove deletes h and returns the value it referred to. The slot becomes
// reusable immediately.
func (a *arena[T]) remove(h Handle) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero T
	s, err := a.lookup(h)
	if err != nil {
		return zero, err
	}
	v := s.value
	s.value = zero
	s.live = false
	index, _, _ := h.split()
	a.free = append(a.free, index)
	a.live--
	return v, nil
}

// drain removes every live value and returns them.
func (a *arena[T]) drain() []T {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero T
	out := make([]T, 0, a.live)
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		out = append(out, s.value)
		s.value = zero
		s.live = false
		a.free = append(a.free, uint32(i))
	}
	a.live = 0
	return out
}

func (a *arena[T]) size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// lookup must be called with a.mu held.
func (a *arena[T]) lookup(h Handle) (*slot[T], error) {
	if h.IsNull() {
		return nil, fmt.Errorf("%w: null handle", ErrInvalidHandle)
	}
	index, generation, ok := h.split()
	if !ok || int(index) >= len(a.slots) {
		return nil, fmt.Errorf("%w: %v was not issued by this boundary", ErrInvalidHandle, h)
	}
	s := &a.slots[index]
	if !s.live || s.generation != generation {
		return nil, fmt.Errorf("%w: %v is stale or already released", ErrInvalidHandle, h)
	}
	return s, nil
}
