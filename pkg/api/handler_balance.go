package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/metaforge/metaforge/pkg/models"
)

// listEpochsHandler handles GET /api/epochs.
func (s *Server) listEpochsHandler(c *gin.Context) {
	timeline := s.epochs.Get().Timeline()
	if timeline == nil {
		timeline = []models.MetaEpoch{}
	}
	c.JSON(http.StatusOK, gin.H{"epochs": timeline})
}

// listBalanceHandler handles GET /api/balance, newest first.
func (s *Server) listBalanceHandler(c *gin.Context) {
	page, pageSize, ok := pageParams(c)
	if !ok {
		return
	}
	events, err := s.store.ReadSignificantEvents()
	if err != nil {
		internalError(c, err)
		return
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return models.DateBefore(events[j].Date, events[i].Date)
		}
		return events[i].Title < events[j].Title
	})
	c.JSON(http.StatusOK, paginate(events, page, pageSize))
}

// getBalanceHandler handles GET /api/balance/:id.
func (s *Server) getBalanceHandler(c *gin.Context) {
	id := c.Param("id")
	events, err := s.store.ReadSignificantEvents()
	if err != nil {
		internalError(c, err)
		return
	}
	for _, ev := range events {
		if ev.ID == id {
			c.JSON(http.StatusOK, ev)
			return
		}
	}
	notFound(c, "balance pass not found")
}
