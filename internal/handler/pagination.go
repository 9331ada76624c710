package handler

import (
	"fmt"
	"net/http"
	"net/url"
)

// Page is the list envelope: count is the total matching rows, next/previous
// are ready-to-follow URLs or null, stats carries endpoint-specific
// aggregates over the whole result set.
type Page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
	Stats    interface{} `json:"stats,omitempty"`
}

// NewPage builds the pagination envelope from the request's own URL.
func NewPage(r *http.Request, total, limit, offset int, results interface{}, stats interface{}) Page {
	page := Page{
		Count:   total,
		Results: results,
		Stats:   stats,
	}
	if offset+limit < total {
		page.Next = pageURL(r.URL, limit, offset+limit)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		page.Previous = pageURL(r.URL, limit, prev)
	}
	return page
}

func pageURL(u *url.URL, limit, offset int) *string {
	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	next := *u
	next.RawQuery = q.Encode()
	s := next.String()
	return &s
}
