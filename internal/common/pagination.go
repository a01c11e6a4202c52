package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination reads the page and limit query parameters, clamping both to
// sane positive values.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page = intParam(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage = intParam(q.Get("limit"), defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return
}

func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
