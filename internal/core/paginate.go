package core

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 10

// Page describes one preview page. Number is 1-based; Start and End are
// record offsets with End exclusive.
type Page struct {
	Number     int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
	Start      int `json:"start"`
	End        int `json:"end"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Paginate resolves a page request against total records. A page number
// outside [1, TotalPages] resets to 1 rather than erroring. An empty
// dataset has exactly one (empty) page.
func Paginate(total, size, number int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total = max(total, 0)

	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number < 1 || number > pages {
		number = 1
	}

	start := (number - 1) * size
	end := min(start+size, total)

	return Page{
		Number:     number,
		Size:       size,
		TotalPages: pages,
		Total:      total,
		Start:      start,
		End:        end,
	}
}

// PreviewPage returns the records on the requested page of ds.
func PreviewPage(ds *Dataset, size, number int) ([]Record, Page) {
	p := Paginate(ds.Len(), size, number)
	return ds.Slice(p.Start, p.End), p
}
