package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type pageEnvelope[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// pageParams reads page and page_size, defaulting to 1 and 25. A malformed
// or out-of-range value is a 400 naming the offending parameter.
func pageParams(c *gin.Context) (page, pageSize int, ok bool) {
	page, pageSize = 1, defaultPageSize
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, "invalid page: must be a positive integer")
			return 0, 0, false
		}
		page = n
	}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			badRequest(c, fmt.Sprintf("invalid page_size: must be 1..%d", maxPageSize))
			return 0, 0, false
		}
		pageSize = n
	}
	return page, pageSize, true
}

// paginate slices items into the requested page. A page past the end yields
// an empty items array, not an error.
func paginate[T any](items []T, page, pageSize int) pageEnvelope[T] {
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	pageItems := items[start:end]
	if pageItems == nil {
		pageItems = []T{}
	}
	return pageEnvelope[T]{
		Items: pageItems,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1 && total > 0,
		},
	}
}
