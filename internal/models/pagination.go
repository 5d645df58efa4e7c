package models

// Pagination is the page metadata attached to list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination clamps page and size. A size outside 1..maxSize falls back to defaultSize.
func NewPagination(page, size, defaultSize, maxSize, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxSize {
		size = defaultSize
	}
	return Pagination{Page: page, PageSize: size, TotalCount: total}
}

// Bounds returns the half-open slice range of the current page.
func (p Pagination) Bounds() (start, end int) {
	start = (p.Page - 1) * p.PageSize
	if start > p.TotalCount {
		start = p.TotalCount
	}
	end = start + p.PageSize
	if end > p.TotalCount {
		end = p.TotalCount
	}
	return start, end
}
