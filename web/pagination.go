package web

import (
	"net/url"
	"strconv"
)

// Pagination is a pagination helper type for use on listing pages. Out
// of range page numbers are clamped rather than reported, matching the
// general treatment of malformed query parameters.
type Pagination struct {
	pageLen   int
	queryVals url.Values

	PageNo   int
	Pages    int
	Next     int // 0 means no next page
	Previous int // 0 means no previous page
}

// NewPagination calculates the pagination settings for the provided
// pageLen (number of items to show per page), the total records in the
// current set, the current page number and the present url values. The
// url values are used for determining the url (if any) for the "Next"
// and "Previous" pages.
func NewPagination(pageLen, totalRecords, currentPage int, query url.Values) *Pagination {

	if pageLen <= 0 {
		pageLen = 1
	}

	totalPages := 1
	if totalRecords > 0 {
		totalPages = ((totalRecords - 1) / pageLen) + 1
	}

	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	pg := &Pagination{
		pageLen:   pageLen,
		queryVals: query,
		PageNo:    currentPage,
		Pages:     totalPages,
	}

	if pg.PageNo > 1 {
		pg.Previous = pg.PageNo - 1
	}
	if pg.PageNo < pg.Pages {
		pg.Next = pg.PageNo + 1
	}
	return pg
}

// HasMore reports whether a further page of results exists, for use by
// the incremental loading endpoint.
func (p *Pagination) HasMore() bool {
	return p.Next != 0
}

// buildURL generates a URL query string for a specific page.
func (p *Pagination) buildURL(page int) string {
	newQuery := make(url.Values, len(p.queryVals))
	for k, v := range p.queryVals {
		newQuery[k] = v
	}

	newQuery.Set("page", strconv.Itoa(page))
	return "?" + newQuery.Encode()
}

// NextURL returns the URL for the next page. Returns empty string if no next page.
func (p *Pagination) NextURL() string {
	if p.Next == 0 {
		return ""
	}
	return p.buildURL(p.Next)
}

// PreviousURL returns the URL for the previous page. Returns empty string if no prev page.
func (p *Pagination) PreviousURL() string {
	if p.Previous == 0 {
		return ""
	}
	return p.buildURL(p.Previous)
}
