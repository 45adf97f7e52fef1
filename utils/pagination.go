package utils

import "strconv"

// Page describes one window of an ordered listing.
type Page struct {
	Number     int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// GetPage resolves a raw page query parameter against the total item count.
// A missing or unparsable parameter falls back to page 1; a number past the
// end falls back to the last available page. An empty listing still has one
// (empty) page.
func GetPage(raw string, total int64, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = 10
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	number := 1
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		number = n
	}
	if number > totalPages {
		number = totalPages
	}

	return Page{
		Number:     number,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    number < totalPages,
		HasPrev:    number > 1,
	}
}

// Offset returns the SQL offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PageSize
}
