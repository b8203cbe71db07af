package common

import (
	"net/http"
	"strconv"
)

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 200

// Page describes one window of an in-memory list.
type Page struct {
	Number     int `json:"page"`
	Size       int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PageParams reads ?page= and ?limit=, falling back to page 1 and size.
// Out-of-range values are ignored rather than rejected.
func PageParams(r *http.Request, size int) (number, limit int) {
	q := r.URL.Query()
	number, limit = 1, size
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		number = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = min(n, MaxPageSize)
	}
	return number, limit
}

// Paginate slices items to the requested window. A non-positive limit
// returns everything as a single page.
func Paginate[T any](items []T, number, limit int) ([]T, Page) {
	p := Page{Number: number, Size: limit, Total: len(items), TotalPages: 1}
	if limit <= 0 {
		p.Size = len(items)
		return items, p
	}
	p.TotalPages = (len(items) + limit - 1) / limit
	offset := (number - 1) * limit
	if offset < 0 || offset >= len(items) {
		return []T{}, p
	}
	return items[offset:min(offset+limit, len(items))], p
}
