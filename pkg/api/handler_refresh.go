package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metaforge/metaforge/pkg/models"
	"github.com/metaforge/metaforge/pkg/syncer"
)

// defaultRefreshDays is the window length when the caller names no dates.
const defaultRefreshDays = 14

// refreshWindow reads from/to query parameters, defaulting to the last two
// weeks ending today.
func refreshWindow(c *gin.Context) (syncer.Window, bool) {
	today := time.Now().UTC()
	w := syncer.Window{
		From: models.FormatDate(today.AddDate(0, 0, -defaultRefreshDays)),
		To:   models.FormatDate(today),
	}
	if v := c.Query("from"); v != "" {
		if _, err := models.ParseDate(v); err != nil {
			badRequest(c, "invalid from: must be YYYY-MM-DD")
			return w, false
		}
		w.From = v
	}
	if v := c.Query("to"); v != "" {
		if _, err := models.ParseDate(v); err != nil {
			badRequest(c, "invalid to: must be YYYY-MM-DD")
			return w, false
		}
		w.To = v
	}
	if models.DateBefore(w.To, w.From) {
		badRequest(c, "invalid window: from is after to")
		return w, false
	}
	return w, true
}

// refreshPreviewHandler handles GET /api/refresh/preview.
func (s *Server) refreshPreviewHandler(c *gin.Context) {
	window, ok := refreshWindow(c)
	if !ok {
		return
	}
	summary, err := s.syncer.Preview(c.Request.Context(), window)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// startRefreshHandler handles POST /api/refresh. A run already in progress
// is a 409 and leaves that run untouched.
func (s *Server) startRefreshHandler(c *gin.Context) {
	window, ok := refreshWindow(c)
	if !ok {
		return
	}
	if err := s.syncer.Start(window); err != nil {
		if errors.Is(err, syncer.ErrAlreadyRunning) {
			respondError(c, http.StatusConflict, codeConflict, "a refresh is already running")
			return
		}
		internalError(c, err)
		return
	}
	s.log.Info("refresh started", "from", window.From, "to", window.To)
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "window": window})
}

// refreshStatusHandler handles GET /api/refresh/status.
func (s *Server) refreshStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.syncer.Progress())
}
