package syncer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaforge/metaforge/pkg/agent"
	"github.com/metaforge/metaforge/pkg/config"
	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/fetch"
	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/models"
	"github.com/metaforge/metaforge/pkg/platform"
	"github.com/metaforge/metaforge/pkg/storage"
)

// scriptedBackend replays canned responses in call order.
type scriptedBackend struct {
	responses []string
	calls     int
}

func (b *scriptedBackend) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	i := b.calls
	b.calls++
	if i >= len(b.responses) {
		i = len(b.responses) - 1
	}
	return &llm.ChatResponse{Content: b.responses[i], Model: "scripted"}, nil
}

func (b *scriptedBackend) HealthCheck(context.Context) bool { return true }
func (b *scriptedBackend) Name() string                     { return "scripted" }

const balanceResponse = `{"events":[
	{"event_type":"balance_update","date":"2025-01-01","title":"Launch"},
	{"event_type":"balance_update","date":"2025-06-01","title":"Mid Year Dataslate"}
]}`

const normalizerResponse = `{"faction":"Aeldari","detachment":"Seer Council","total_points":0,
"units":[{"name":"Farseer","model_count":1,"points":100}],
"confidence":"low","notes":"hand-written list, points guessed"}`

func platformMux(t *testing.T, resultWindowFrom string) *http.ServeMux {
	t.Helper()
	futureDate := models.FormatDate(time.Now().AddDate(0, 0, 10))

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startDate") == resultWindowFrom {
			w.Write([]byte(`{"data":[{"id":"ev1","name":"Spring GT","startDate":"2025-03-10","totalPlayers":2,"numberOfRounds":1}]}`))
			return
		}
		w.Write([]byte(`{"data":[{"id":"ev9","name":"Autumn GT","startDate":"` + futureDate + `"}]}`))
	})
	mux.HandleFunc("/events/ev1/players", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active":[
			{"id":"a","name":"Alice","faction":"Aeldari","armyListId":"list-1"},
			{"id":"b","name":"Bob","faction":"Orks"}
		],"deleted":[]}`))
	})
	mux.HandleFunc("/pairings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"p1","eventId":"ev1","round":1,
			"player1":{"id":"a","name":"Alice","faction":"Aeldari","result":2,"gamePoints":85},
			"player2":{"id":"b","name":"Bob","faction":"Orks","result":0,"gamePoints":60}}]}`))
	})
	mux.HandleFunc("/lists/list-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":"some hand-written scribbles no parser dialect matches"}`))
	})
	mux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>balance page</html>`))
	})
	return mux
}

func testOrchestrator(t *testing.T, srv *httptest.Server, backend llm.Backend) (*Orchestrator, *storage.Store, *epoch.Holder) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	launch := significantEvent("2025-01-01", "Launch")
	require.NoError(t, store.AppendSignificantEvents(launch))
	mapper, err := epoch.Build([]models.SignificantEvent{launch})
	require.NoError(t, err)
	holder := epoch.NewHolder(mapper)

	fetchCfg := config.Defaults().Fetch
	fetchCfg.RequestDelayMillis = 0
	fetcher := fetch.New(t.TempDir(), fetchCfg)
	client := platform.New(srv.URL, srv.URL, fetcher, srv.Client())

	policy := agent.RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, BackoffMultiplier: 1.0}
	o := New(Options{
		Store:      store,
		Platform:   client,
		Fetcher:    fetcher,
		Balance:    agent.NewBalanceWatcher(backend, policy),
		Normalizer: agent.NewListNormalizer(backend, policy),
		Epochs:     holder,
		BalanceURL: srv.URL + "/balance",
	})
	return o, store, holder
}

func TestFullSyncRun(t *testing.T) {
	srv := httptest.NewServer(platformMux(t, "2025-03-01"))
	defer srv.Close()

	backend := &scriptedBackend{responses: []string{balanceResponse, normalizerResponse}}
	o, store, holder := testOrchestrator(t, srv, backend)

	var callbackFired bool
	o.OnProgress(func(Progress) { callbackFired = true })

	require.NoError(t, o.Start(Window{From: "2025-03-01", To: "2025-03-31"}))
	o.Wait()

	p := o.Progress()
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Empty(t, p.Errors)
	assert.Equal(t, 1, p.NewBalanceEvents)
	assert.Equal(t, 1, p.EventsSynced)
	assert.Equal(t, 2, p.PlacementsWritten)
	assert.Equal(t, 1, p.ListsWritten)
	assert.Equal(t, 1, p.FutureEventsFound)
	require.Len(t, p.Events, 1)
	assert.Equal(t, EventDone, p.Events[0].Status)
	assert.Equal(t, 2, p.Events[0].PlacementsFound)
	assert.True(t, callbackFired)

	// The balance watcher added one significant event; the mapper rebuilt
	// with two epochs.
	significant, err := store.ReadSignificantEvents()
	require.NoError(t, err)
	assert.Len(t, significant, 2)
	assert.Equal(t, 2, holder.Get().Len())

	epochs := holder.Get().Timeline()
	firstID, secondID := epochs[0].ID, epochs[1].ID

	// The completed event stays in the first epoch after repartition; the
	// future event (scheduled) lands in the new current epoch.
	firstEvents, err := store.ReadEvents(firstID)
	require.NoError(t, err)
	require.Len(t, firstEvents, 1)
	assert.Equal(t, "Spring GT", firstEvents[0].Name)

	secondEvents, err := store.ReadEvents(secondID)
	require.NoError(t, err)
	require.Len(t, secondEvents, 1)
	assert.Equal(t, "Autumn GT", secondEvents[0].Name)
	assert.Equal(t, models.EventStatusScheduled, secondEvents[0].Status)

	placements, err := store.ReadPlacements(firstID)
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.Equal(t, 1, placements[0].Rank)
	assert.Equal(t, "Alice", placements[0].PlayerName)
	assert.NotEmpty(t, placements[0].ListID)
	assert.NotEqual(t, "list-1", placements[0].ListID, "back-reference must use the content-addressed id")

	lists, err := store.ReadLists(firstID)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "Aeldari", lists[0].Faction)
	assert.Equal(t, 100, lists[0].TotalPoints)
	assert.Equal(t, placements[0].ListID, lists[0].ID)

	// Low-confidence normalization landed in the review queue.
	reviews, err := store.ReadReviews()
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "army_list", reviews[0].EntityType)
	assert.Equal(t, lists[0].ID, reviews[0].EntityID)

	pairings, err := store.ReadPairings(firstID)
	require.NoError(t, err)
	require.Len(t, pairings, 1)
	assert.Equal(t, models.ResultWin, pairings[0].P1Result)
}

func TestDoubleStartAndCancel(t *testing.T) {
	release := make(chan struct{})
	mux := platformMux(t, "2025-03-01")
	blockingMux := http.NewServeMux()
	blockingMux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Write([]byte(`<html></html>`))
	})
	blockingMux.Handle("/", mux)
	srv := httptest.NewServer(blockingMux)
	defer srv.Close()

	backend := &scriptedBackend{responses: []string{balanceResponse}}
	o, _, _ := testOrchestrator(t, srv, backend)

	require.NoError(t, o.Start(Window{From: "2025-03-01", To: "2025-03-31"}))
	assert.ErrorIs(t, o.Start(Window{From: "2025-03-01", To: "2025-03-31"}), ErrAlreadyRunning)

	o.Cancel()
	o.Wait()
	close(release)

	p := o.Progress()
	assert.Equal(t, StatusCancelled, p.Status)
	assert.Empty(t, p.Errors)

	// After the run finished a new one may start.
	require.NoError(t, o.Start(Window{From: "2025-03-01", To: "2025-03-31"}))
	o.Wait()
}

func TestPreviewCountsWithoutWriting(t *testing.T) {
	srv := httptest.NewServer(platformMux(t, "2025-03-01"))
	defer srv.Close()

	backend := &scriptedBackend{responses: []string{balanceResponse, normalizerResponse}}
	o, store, _ := testOrchestrator(t, srv, backend)

	summary, err := o.Preview(context.Background(), Window{From: "2025-03-01", To: "2025-03-31"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventsFound)
	assert.Equal(t, 1, summary.Syncable)
	assert.Equal(t, 1, summary.New)
	assert.Zero(t, summary.AlreadyStored)

	events, err := store.ReadAllEvents()
	require.NoError(t, err)
	assert.Empty(t, events)

	// After a sync the same window reports already-stored.
	require.NoError(t, o.Start(Window{From: "2025-03-01", To: "2025-03-31"}))
	o.Wait()

	summary, err = o.Preview(context.Background(), Window{From: "2025-03-01", To: "2025-03-31"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyStored)
	assert.Zero(t, summary.New)
}
