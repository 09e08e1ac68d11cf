// Package dynarray provides a typed, amortized-doubling dynamic array.
//
// Array tracks its capacity explicitly so growth is observable and
// deterministic: when full, the capacity doubles before the append.
//
// Thread safety: Array is NOT thread-safe. Callers must serialize access.
package dynarray

// Array is a growable sequence of T.
// The zero value is usable and behaves as if Init(1) had been called.
type Array[T any] struct {
	items []T
}

// New returns an Array initialized with the given capacity.
func New[T any](capacity int) *Array[T] {
	a := &Array[T]{}
	a.Init(capacity)
	return a
}

// Init allocates backing storage for capacity elements and empties the array.
// Capacity is clamped to at least 1 so doubling always makes progress.
func (a *Array[T]) Init(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	a.items = make([]T, 0, capacity)
}

// Append adds v to the end of the array, doubling the capacity first if the
// array is full.
func (a *Array[T]) Append(v T) {
	if a.items == nil {
		a.Init(1)
	}
	if len(a.items) == cap(a.items) {
		grown := make([]T, len(a.items), 2*cap(a.items))
		copy(grown, a.items)
		a.items = grown
	}
	a.items = append(a.items, v)
}

// Release drops the backing storage and resets length and capacity to zero.
func (a *Array[T]) Release() {
	clear(a.items)
	a.items = nil
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	return len(a.items)
}

// Cap returns the current capacity.
func (a *Array[T]) Cap() int {
	return cap(a.items)
}

// At returns the element at index i. It panics if i is out of range.
func (a *Array[T]) At(i int) T {
	return a.items[i]
}

// All returns the elements in insertion order.
// The returned slice aliases the array and is invalidated by Append or Release.
func (a *Array[T]) All() []T {
	return a.items
}
