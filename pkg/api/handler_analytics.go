package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// respondList answers with a JSON array, never null.
func respondList[T any](c *gin.Context, items []T, err error) {
	if err != nil {
		internalError(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}

// overviewHandler handles GET /api/analytics/overview.
func (s *Server) overviewHandler(c *gin.Context) {
	overview, err := s.engine.GetOverview()
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// trendsHandler handles GET /api/analytics/trends. Optional query
// "factions" is a comma-separated list; empty means top factions by count.
func (s *Server) trendsHandler(c *gin.Context) {
	var factions []string
	if v := c.Query("factions"); v != "" {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				factions = append(factions, f)
			}
		}
	}
	trends, err := s.engine.Trends(factions)
	respondList(c, trends, err)
}

// playersHandler handles GET /api/analytics/players.
func (s *Server) playersHandler(c *gin.Context) {
	page, pageSize, ok := pageParams(c)
	if !ok {
		return
	}
	players, err := s.engine.TopPlayers()
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(players, page, pageSize))
}

// unitsHandler handles GET /api/analytics/units.
func (s *Server) unitsHandler(c *gin.Context) {
	units, err := s.engine.UnitPopularity()
	respondList(c, units, err)
}

// detachmentsHandler handles GET /api/analytics/detachments.
func (s *Server) detachmentsHandler(c *gin.Context) {
	stats, err := s.engine.DetachmentStats()
	respondList(c, stats, err)
}

// unitPerformanceHandler handles GET /api/analytics/unit-performance.
func (s *Server) unitPerformanceHandler(c *gin.Context) {
	stats, err := s.engine.UnitPerformanceStats()
	respondList(c, stats, err)
}

// pointsEfficiencyHandler handles GET /api/analytics/points-efficiency.
func (s *Server) pointsEfficiencyHandler(c *gin.Context) {
	stats, err := s.engine.PointsEfficiencyStats()
	respondList(c, stats, err)
}

// matchupsHandler handles GET /api/analytics/matchups.
func (s *Server) matchupsHandler(c *gin.Context) {
	matchups, err := s.engine.Matchups()
	respondList(c, matchups, err)
}

// archetypesHandler handles GET /api/analytics/archetypes?faction=...
func (s *Server) archetypesHandler(c *gin.Context) {
	faction := c.Query("faction")
	if faction == "" {
		badRequest(c, "missing faction: query parameter is required")
		return
	}
	archetypes, err := s.engine.Archetypes(faction)
	respondList(c, archetypes, err)
}

// winRatesHandler handles GET /api/analytics/win-rates.
func (s *Server) winRatesHandler(c *gin.Context) {
	rates, err := s.engine.WinRates()
	respondList(c, rates, err)
}

// compositeScoresHandler handles GET /api/analytics/composite-scores.
func (s *Server) compositeScoresHandler(c *gin.Context) {
	scores, err := s.engine.CompositeScores()
	respondList(c, scores, err)
}

// metaFactionsHandler handles GET /api/meta/factions.
func (s *Server) metaFactionsHandler(c *gin.Context) {
	factions, err := s.engine.MetaFactions()
	respondList(c, factions, err)
}

// factionDetailHandler handles GET /api/meta/factions/:name.
func (s *Server) factionDetailHandler(c *gin.Context) {
	detail, err := s.engine.GetFactionDetail(c.Param("name"))
	if err != nil {
		internalError(c, err)
		return
	}
	if detail == nil {
		notFound(c, "faction has no recorded placements")
		return
	}
	c.JSON(http.StatusOK, detail)
}
