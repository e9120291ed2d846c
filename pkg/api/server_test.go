package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaforge/metaforge/pkg/analytics"
	"github.com/metaforge/metaforge/pkg/config"
	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/fetch"
	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/models"
	"github.com/metaforge/metaforge/pkg/platform"
	"github.com/metaforge/metaforge/pkg/storage"
	"github.com/metaforge/metaforge/pkg/syncer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBackend struct{ healthy bool }

func (b *stubBackend) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "{}"}, nil
}
func (b *stubBackend) HealthCheck(context.Context) bool { return b.healthy }
func (b *stubBackend) Name() string                     { return "stub" }

type fixture struct {
	store  *storage.Store
	server *Server
	router *gin.Engine
}

// newFixture builds a server over a temp store. platformHandler may be nil
// when no test exercises the refresh path.
func newFixture(t *testing.T, platformHandler http.Handler) *fixture {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	launch := models.SignificantEvent{
		EventType: models.EventTypeEditionRelease, Date: "2025-01-01", Title: "Edition Launch",
	}
	launch.ID = launch.NewID()
	require.NoError(t, store.AppendSignificantEvents(launch))
	mapper, err := epoch.Build([]models.SignificantEvent{launch})
	require.NoError(t, err)
	holder := epoch.NewHolder(mapper)

	engine := analytics.New(store, holder, config.Defaults().Analytics)

	opts := syncer.Options{Store: store, Epochs: holder}
	if platformHandler != nil {
		srv := httptest.NewServer(platformHandler)
		t.Cleanup(srv.Close)
		fetchCfg := config.Defaults().Fetch
		fetchCfg.RequestDelayMillis = 0
		fetcher := fetch.New(t.TempDir(), fetchCfg)
		opts.Fetcher = fetcher
		opts.Platform = platform.New(srv.URL, srv.URL, fetcher, srv.Client())
	}
	orch := syncer.New(opts)

	cfg := config.Defaults().Server
	s := New(cfg, store, engine, orch, holder, &stubBackend{healthy: true})
	return &fixture{store: store, server: s, router: s.Router()}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func seedEvent(t *testing.T, store *storage.Store, epochID, name, date string) models.Event {
	t.Helper()
	ev := models.Event{Name: name, Date: date, Status: models.EventStatusCompleted, EpochID: epochID}
	ev.ID = ev.NewID()
	require.NoError(t, store.AppendEvents(epochID, ev))
	return ev
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	w := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	backend := body["backend"].(map[string]any)
	assert.Equal(t, "stub", backend["name"])
	assert.Equal(t, true, backend["reachable"])
}

func TestEventsPaginationEnvelope(t *testing.T) {
	f := newFixture(t, nil)
	seedEvent(t, f.store, "ep1", "GT One", "2025-03-01")
	seedEvent(t, f.store, "ep1", "GT Two", "2025-03-08")
	seedEvent(t, f.store, "ep1", "GT Three", "2025-03-15")

	w := f.get(t, "/api/events?page=1&page_size=2")
	require.Equal(t, http.StatusOK, w.Code)
	page1 := decode[pageEnvelope[models.Event]](t, w)
	assert.Len(t, page1.Items, 2)
	assert.Equal(t, 3, page1.Pagination.TotalItems)
	assert.Equal(t, 2, page1.Pagination.TotalPages)
	assert.True(t, page1.Pagination.HasNext)
	assert.False(t, page1.Pagination.HasPrev)
	// Newest first.
	assert.Equal(t, "GT Three", page1.Items[0].Name)

	w = f.get(t, "/api/events?page=2&page_size=2")
	page2 := decode[pageEnvelope[models.Event]](t, w)
	assert.Len(t, page2.Items, 1)
	assert.False(t, page2.Pagination.HasNext)
	assert.True(t, page2.Pagination.HasPrev)

	// A page past the end is empty, not an error.
	w = f.get(t, "/api/events?page=9&page_size=2")
	require.Equal(t, http.StatusOK, w.Code)
	past := decode[pageEnvelope[models.Event]](t, w)
	assert.Empty(t, past.Items)
}

func TestEventsFilters(t *testing.T) {
	f := newFixture(t, nil)
	early := seedEvent(t, f.store, "ep1", "Early GT", "2025-02-01")
	late := seedEvent(t, f.store, "ep2", "Late GT", "2025-05-01")
	p := models.Placement{EventID: late.ID, Rank: 1, PlayerName: "Alice", Faction: "Aeldari", Wins: 5}
	p.ID = p.NewID()
	require.NoError(t, f.store.AppendPlacements("ep2", p))

	w := f.get(t, "/api/events?from=2025-03-01")
	page := decode[pageEnvelope[models.Event]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Late GT", page.Items[0].Name)

	w = f.get(t, "/api/events?to=2025-03-01")
	page = decode[pageEnvelope[models.Event]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Early GT", page.Items[0].Name)

	w = f.get(t, "/api/events?epoch=ep1")
	page = decode[pageEnvelope[models.Event]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, early.ID, page.Items[0].ID)

	w = f.get(t, "/api/events?has_results=true")
	page = decode[pageEnvelope[models.Event]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, late.ID, page.Items[0].ID)

	w = f.get(t, "/api/events?from=March")
	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decode[errorEnvelope](t, w)
	assert.Equal(t, codeBadRequest, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, "from")

	w = f.get(t, "/api/events?page_size=500")
	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope = decode[errorEnvelope](t, w)
	assert.Contains(t, envelope.Error.Message, "page_size")
}

func TestEventDetail(t *testing.T) {
	f := newFixture(t, nil)
	ev := seedEvent(t, f.store, "ep1", "Detail GT", "2025-03-01")

	l := models.ArmyList{Faction: "Aeldari", Detachment: "Battle Host", TotalPoints: 2000,
		Units: []models.Unit{{Name: "Farseer", ModelCount: 1, Points: 100}}}
	l.ID = l.NewID()
	require.NoError(t, f.store.AppendLists("ep1", l))

	p := models.Placement{EventID: ev.ID, Rank: 1, PlayerName: "Alice", Faction: "Aeldari", Wins: 5, ListID: l.ID}
	p.ID = p.NewID()
	p2 := models.Placement{EventID: ev.ID, Rank: 2, PlayerName: "Bob", Faction: "Orks", Wins: 4}
	p2.ID = p2.NewID()
	require.NoError(t, f.store.AppendPlacements("ep1", p2, p))

	w := f.get(t, "/api/events/"+ev.ID)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[eventDetail](t, w)
	assert.Equal(t, ev.ID, detail.Event.ID)
	require.Len(t, detail.Placements, 2)
	assert.Equal(t, 1, detail.Placements[0].Rank)
	require.NotNil(t, detail.Placements[0].List)
	assert.Equal(t, l.ID, detail.Placements[0].List.ID)
	assert.Nil(t, detail.Placements[1].List)

	w = f.get(t, "/api/events/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	envelope := decode[errorEnvelope](t, w)
	assert.Equal(t, codeNotFound, envelope.Error.Code)
}

func TestBalanceEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	w := f.get(t, "/api/balance")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[pageEnvelope[models.SignificantEvent]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Edition Launch", page.Items[0].Title)

	w = f.get(t, "/api/balance/"+page.Items[0].ID)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.get(t, "/api/balance/ffffffffffffffff")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEpochsTimeline(t *testing.T) {
	f := newFixture(t, nil)
	w := f.get(t, "/api/epochs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Epochs []models.MetaEpoch `json:"epochs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Epochs, 1)
	assert.True(t, body.Epochs[0].IsCurrent)
}

func TestAnalyticsEmptyIsOK(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{
		"/api/analytics/win-rates",
		"/api/analytics/composite-scores",
		"/api/analytics/units",
		"/api/analytics/detachments",
		"/api/analytics/unit-performance",
		"/api/analytics/points-efficiency",
		"/api/analytics/matchups",
		"/api/analytics/trends",
		"/api/meta/factions",
	} {
		w := f.get(t, path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "[]", w.Body.String(), path)
	}
}

func TestArchetypesRequiresFaction(t *testing.T) {
	f := newFixture(t, nil)
	w := f.get(t, "/api/analytics/archetypes")
	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decode[errorEnvelope](t, w)
	assert.Contains(t, envelope.Error.Message, "faction")

	w = f.get(t, "/api/analytics/archetypes?faction=orks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestFactionDetailNotFound(t *testing.T) {
	f := newFixture(t, nil)
	w := f.get(t, "/api/meta/factions/Aeldari")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshRejectsProxiedRequests(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	envelope := decode[errorEnvelope](t, w)
	assert.Equal(t, codeForbidden, envelope.Error.Code)
}

func TestRefreshRejectsNonLoopback(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRefreshConflictWhileRunning(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Write([]byte(`{"data":[]}`))
	})
	f := newFixture(t, mux)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/refresh?from=2025-03-01&to=2025-03-31", nil)
		req.RemoteAddr = "127.0.0.1:9999"
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}

	first := post()
	require.Equal(t, http.StatusAccepted, first.Code)

	second := post()
	require.Equal(t, http.StatusConflict, second.Code)
	envelope := decode[errorEnvelope](t, second)
	assert.Equal(t, codeConflict, envelope.Error.Code)

	status := f.get(t, "/api/refresh/status")
	running := decode[syncer.Progress](t, status)
	assert.Equal(t, syncer.StatusRunning, running.Status)
	assert.Equal(t, "2025-03-01", running.Window.From)

	close(release)
	f.server.syncer.Wait()

	status = f.get(t, "/api/refresh/status")
	done := decode[syncer.Progress](t, status)
	assert.Equal(t, syncer.StatusCompleted, done.Status)
	assert.Empty(t, done.Errors)
}

func TestRefreshBadWindow(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/refresh?from=2025-05-01&to=2025-03-01", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrafficReport(t *testing.T) {
	f := newFixture(t, nil)
	f.get(t, "/healthz")
	f.get(t, "/healthz")

	w := f.get(t, "/api/traffic")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[TrafficReport](t, w)
	// Two health probes plus the traffic request itself.
	assert.Equal(t, 3, report.TotalRequests)
	require.NotEmpty(t, report.PerMinute)
	total := 0
	for _, b := range report.PerMinute {
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.NotEmpty(t, report.TopIPs)
}

func TestReviewsListing(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.store.EnqueueReview("army_list", "aaaa", "low_confidence", "")
	require.NoError(t, err)
	item, err := f.store.EnqueueReview("event", "bbbb", "fact_check", "")
	require.NoError(t, err)
	require.NoError(t, f.store.ResolveReview(item.ID, "checked"))

	w := f.get(t, "/api/reviews")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[pageEnvelope[models.ReviewQueueItem]](t, w)
	assert.Len(t, page.Items, 2)

	w = f.get(t, "/api/reviews?resolved=false")
	page = decode[pageEnvelope[models.ReviewQueueItem]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "aaaa", page.Items[0].EntityID)
}
