// Package pagination holds the page arithmetic shared by every list endpoint.
package pagination

const (
	// DefaultLimit applies when the caller sends no or a non-positive limit.
	DefaultLimit = 25
	// MaxLimit caps page size.
	MaxLimit = 100

	// Ellipsis marks a gap in a page-number strip.
	Ellipsis = 0

	stripThreshold = 7
)

// Page describes one page of a result set.
type Page struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int   `json:"total"`
	TotalPages  int   `json:"total_pages"`
	Start       int   `json:"start"`
	End         int   `json:"end"`
	PageNumbers []int `json:"page_numbers"`
}

// Offset is the zero-based index of the first item on the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Normalize clamps page and limit to usable values.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// TotalPages returns ceil(total/limit), or 0 for an empty set.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// New builds the page descriptor for a normalized page and limit. Start and
// End are the 1-based inclusive item range; both are 0 for an empty set.
func New(page, limit, total int) Page {
	page, limit = Normalize(page, limit)
	if total < 0 {
		total = 0
	}
	p := Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: TotalPages(total, limit),
	}
	if total > 0 {
		p.Start = (page-1)*limit + 1
		p.End = min(page*limit, total)
		if p.Start > total {
			p.Start, p.End = 0, 0
		}
	}
	p.PageNumbers = PageNumbers(page, p.TotalPages)
	return p
}

// PageNumbers returns the strip of page links to show, with Ellipsis (0)
// marking gaps. Up to seven pages are listed in full.
func PageNumbers(page, totalPages int) []int {
	if totalPages <= 0 {
		return []int{}
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	if totalPages <= stripThreshold {
		pages := make([]int, 0, totalPages)
		for i := 1; i <= totalPages; i++ {
			pages = append(pages, i)
		}
		return pages
	}

	last := totalPages
	switch {
	case page <= 4:
		return []int{1, 2, 3, 4, 5, Ellipsis, last}
	case page >= last-3:
		return []int{1, Ellipsis, last - 4, last - 3, last - 2, last - 1, last}
	default:
		return []int{1, Ellipsis, page - 1, page, page + 1, Ellipsis, last}
	}
}
