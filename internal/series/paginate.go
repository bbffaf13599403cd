package series

// TotalPages returns max(ceil(n/pageSize), 1). An empty sequence still has
// one (empty) page.
func TotalPages(n, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	pages := (n + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage clamps a 1-based page index into [1, totalPages].
func ClampPage(pageIndex, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if pageIndex > totalPages {
		pageIndex = totalPages
	}
	if pageIndex < 1 {
		pageIndex = 1
	}
	return pageIndex
}

// Slice returns the items of page pageIndex and the total page count.
func Slice[T any](seq []T, pageIndex, pageSize int) ([]T, int) {
	w := Page(seq, pageIndex, pageSize)
	return w.Items, TotalPages(len(seq), pageSize)
}
