// Package ring provides a fixed-capacity buffer that evicts its oldest
// element on overflow. All bounded histories in the control core
// (controller errors, temperature samples, control log) are built on it.
package ring

// Buffer is a bounded FIFO with O(1) push and eviction.
type Buffer[T any] struct {
	data  []T
	head  int
	count int
}

// New creates a buffer holding at most capacity elements.
// A non-positive capacity is treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// Push appends v, evicting the oldest element if the buffer is full.
func (b *Buffer[T]) Push(v T) {
	tail := (b.head + b.count) % len(b.data)
	b.data[tail] = v
	if b.count == len(b.data) {
		b.head = (b.head + 1) % len(b.data)
	} else {
		b.count++
	}
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// Values returns the stored elements, oldest first.
func (b *Buffer[T]) Values() []T {
	out := make([]T, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.data[(b.head+i)%len(b.data)])
	}
	return out
}

// Last returns up to n of the most recent elements, oldest first.
func (b *Buffer[T]) Last(n int) []T {
	if n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}
	out := make([]T, 0, n)
	for i := b.count - n; i < b.count; i++ {
		out = append(out, b.data[(b.head+i)%len(b.data)])
	}
	return out
}

// Clear discards all stored elements, keeping capacity.
func (b *Buffer[T]) Clear() {
	b.head = 0
	b.count = 0
}
