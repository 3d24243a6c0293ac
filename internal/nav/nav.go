// Package nav steps through the new comments of one page view.
package nav

// Navigator walks an ordered list of handles. It starts before the first
// element; Previous from that position jumps to the last one.
type Navigator[T any] struct {
	items   []T
	current int
}

// New returns a navigator over items. The slice is not copied.
func New[T any](items []T) *Navigator[T] {
	return &Navigator[T]{items: items, current: -1}
}

// Len returns the number of handles.
func (n *Navigator[T]) Len() int { return len(n.items) }

// Index returns the current position, or -1 before navigation starts.
func (n *Navigator[T]) Index() int { return n.current }

// Current returns the focused handle.
func (n *Navigator[T]) Current() (T, bool) {
	var zero T
	if n.current < 0 || n.current >= len(n.items) {
		return zero, false
	}
	return n.items[n.current], true
}

// Next focuses the following handle. At the end it does nothing and returns false.
func (n *Navigator[T]) Next() (T, bool) {
	if n.current+1 >= len(n.items) {
		var zero T
		return zero, false
	}
	n.current++
	return n.items[n.current], true
}

// Previous focuses the preceding handle. Before navigation has started it
// focuses the last handle; at the first handle it does nothing.
func (n *Navigator[T]) Previous() (T, bool) {
	var zero T
	switch {
	case len(n.items) == 0:
		return zero, false
	case n.current == -1:
		n.current = len(n.items) - 1
	case n.current > 0:
		n.current--
	default:
		return zero, false
	}
	return n.items[n.current], true
}

// Reset returns to the unstarted position.
func (n *Navigator[T]) Reset() { n.current = -1 }
