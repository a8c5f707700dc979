package query

type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	Start      int
	End        int
}

// Paginate slices the 1-based page out of items.
//
// A page past the last one is empty; it is not clamped. Its Start and End
// both sit at the end of items. Callers reset the page to 1 whenever the
// filters change.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}

	total := len(items)
	p := Page[T]{
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}

	// page is bounded by TotalPages below, so the offset can not overflow.
	if page > p.TotalPages {
		p.Start, p.End = total, total
		p.Items = []T{}
		return p
	}

	p.Start = (page - 1) * size
	p.End = min(p.Start+size, total)
	p.Items = make([]T, p.End-p.Start)
	copy(p.Items, items[p.Start:p.End])
	return p
}

func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}
