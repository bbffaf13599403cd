package series

// Window is a contiguous run of a sequence.
type Window[T any] struct {
	// Start is the index of Items[0] in the source sequence.
	Start int
	Items []T
	// Total is the length of the source sequence.
	Total int
}

// Len returns the number of items in the window.
func (w Window[T]) Len() int { return len(w.Items) }

// TrailingWindow returns the last min(n, len(s)) items of s in their
// original order. An empty s or a non-positive n yields an empty window.
func TrailingWindow[T any](s []T, n int) Window[T] {
	if n < 0 {
		n = 0
	}
	start := len(s) - n
	if start < 0 {
		start = 0
	}
	return Window[T]{Start: start, Items: s[start:len(s):len(s)], Total: len(s)}
}

// Page returns the 1-based page pageIndex of s. pageIndex is clamped to
// [1, TotalPages(len(s), pageSize)] and never causes an error.
func Page[T any](s []T, pageIndex, pageSize int) Window[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	pageIndex = ClampPage(pageIndex, TotalPages(len(s), pageSize))
	start := (pageIndex - 1) * pageSize
	if start > len(s) {
		start = len(s)
	}
	end := start + pageSize
	if end > len(s) {
		end = len(s)
	}
	return Window[T]{Start: start, Items: s[start:end:end], Total: len(s)}
}
