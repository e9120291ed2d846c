package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/metaforge/metaforge/pkg/models"
)

// listEventsHandler handles GET /api/events. Filters: from, to (civil
// dates), epoch (epoch id), has_results (bool).
func (s *Server) listEventsHandler(c *gin.Context) {
	page, pageSize, ok := pageParams(c)
	if !ok {
		return
	}

	from := c.Query("from")
	if from != "" {
		if _, err := models.ParseDate(from); err != nil {
			badRequest(c, "invalid from: must be YYYY-MM-DD")
			return
		}
	}
	to := c.Query("to")
	if to != "" {
		if _, err := models.ParseDate(to); err != nil {
			badRequest(c, "invalid to: must be YYYY-MM-DD")
			return
		}
	}
	var hasResults *bool
	if v := c.Query("has_results"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "invalid has_results: must be a boolean")
			return
		}
		hasResults = &b
	}
	epochID := c.Query("epoch")

	events, err := s.store.ReadAllEvents()
	if err != nil {
		internalError(c, err)
		return
	}

	var withResults map[string]bool
	if hasResults != nil {
		placements, err := s.store.ReadAllPlacements()
		if err != nil {
			internalError(c, err)
			return
		}
		withResults = make(map[string]bool)
		for _, p := range placements {
			withResults[p.EventID] = true
		}
	}

	filtered := events[:0:0]
	for _, ev := range events {
		if from != "" && models.DateBefore(ev.Date, from) {
			continue
		}
		if to != "" && models.DateBefore(to, ev.Date) {
			continue
		}
		if epochID != "" && ev.EpochID != epochID {
			continue
		}
		if hasResults != nil && withResults[ev.ID] != *hasResults {
			continue
		}
		filtered = append(filtered, ev)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Date != filtered[j].Date {
			return models.DateBefore(filtered[j].Date, filtered[i].Date)
		}
		return filtered[i].Name < filtered[j].Name
	})

	c.JSON(http.StatusOK, paginate(filtered, page, pageSize))
}

// placementWithList pairs a placement with its joined army list.
type placementWithList struct {
	models.Placement
	List *models.ArmyList `json:"list,omitempty"`
}

// eventDetail is the payload of GET /api/events/:id.
type eventDetail struct {
	Event      models.Event        `json:"event"`
	Placements []placementWithList `json:"placements"`
}

// getEventHandler handles GET /api/events/:id.
func (s *Server) getEventHandler(c *gin.Context) {
	id := c.Param("id")

	events, err := s.store.ReadAllEvents()
	if err != nil {
		internalError(c, err)
		return
	}
	var event *models.Event
	for i := range events {
		if events[i].ID == id {
			event = &events[i]
			break
		}
	}
	if event == nil {
		notFound(c, "event not found")
		return
	}

	placements, err := s.store.ReadAllPlacements()
	if err != nil {
		internalError(c, err)
		return
	}
	lists, err := s.store.ReadAllLists()
	if err != nil {
		internalError(c, err)
		return
	}
	listByID := make(map[string]*models.ArmyList, len(lists))
	for i := range lists {
		listByID[lists[i].ID] = &lists[i]
	}

	detail := eventDetail{Event: *event, Placements: []placementWithList{}}
	for _, p := range placements {
		if p.EventID != id {
			continue
		}
		detail.Placements = append(detail.Placements, placementWithList{
			Placement: p,
			List:      listByID[p.ListID],
		})
	}
	sort.Slice(detail.Placements, func(i, j int) bool {
		return detail.Placements[i].Rank < detail.Placements[j].Rank
	})

	c.JSON(http.StatusOK, detail)
}
