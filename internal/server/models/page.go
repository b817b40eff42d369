package models

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items []T
	Meta  PageMeta
}

// PageMeta describes where a page sits in the full result set. From and To
// are 1-based positions and are nil for an empty page.
type PageMeta struct {
	CurrentPage int    `json:"current_page"`
	PerPage     int    `json:"per_page"`
	Total       int64  `json:"total"`
	LastPage    int    `json:"last_page"`
	From        *int64 `json:"from"`
	To          *int64 `json:"to"`
}

// NewPageMeta computes listing metadata for page (1-based) of size perPage
// holding count items out of total.
func NewPageMeta(page, perPage int, total int64, count int) PageMeta {
	lastPage := 1
	if perPage > 0 && total > 0 {
		lastPage = int((total + int64(perPage) - 1) / int64(perPage))
	}

	meta := PageMeta{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}

	if count > 0 {
		from := int64(page-1)*int64(perPage) + 1
		to := from + int64(count) - 1
		meta.From = &from
		meta.To = &to
	}

	return meta
}

// Offset returns the number of rows to skip for page of size perPage.
func Offset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}
