package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// listReviewsHandler handles GET /api/reviews. Optional query "resolved"
// filters by resolution state; default shows everything, newest first.
func (s *Server) listReviewsHandler(c *gin.Context) {
	page, pageSize, ok := pageParams(c)
	if !ok {
		return
	}
	var resolved *bool
	if v := c.Query("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "invalid resolved: must be a boolean")
			return
		}
		resolved = &b
	}

	items, err := s.store.ReadReviews()
	if err != nil {
		internalError(c, err)
		return
	}
	filtered := items[:0:0]
	for _, item := range items {
		if resolved != nil && item.Resolved != *resolved {
			continue
		}
		filtered = append(filtered, item)
	}
	// Newest first; the queue file is append-ordered.
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	c.JSON(http.StatusOK, paginate(filtered, page, pageSize))
}
