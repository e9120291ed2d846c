package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaforge/metaforge/pkg/config"
	"github.com/metaforge/metaforge/pkg/fetch"
)

func testFetcher(t *testing.T) *fetch.Fetcher {
	t.Helper()
	cfg := config.Defaults().Fetch
	cfg.RequestDelayMillis = 0
	return fetch.New(t.TempDir(), cfg)
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return New(srv.URL, srv.URL, testFetcher(t), srv.Client())
}

func TestDiscoverEventsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "2025-06-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "1", r.URL.Query().Get("gameType"))
		w.Write([]byte(`{"data":[{"id":"ev1","name":"GT Austin","startDate":"2025-06-07"}]}`))
	}))
	defer srv.Close()

	events, err := testClient(t, srv).DiscoverEvents(context.Background(), "2025-06-01", "2025-06-30", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "GT Austin", events[0].Name)
}

func TestDiscoverEventsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"ev1","name":"GT Austin","startDate":"2025-06-07"}]`))
	}))
	defer srv.Close()

	events, err := testClient(t, srv).DiscoverEvents(context.Background(), "2025-06-01", "2025-06-30", 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev1", events[0].ID)
}

func TestListPlayersDropsDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/ev1/players", r.URL.Path)
		w.Write([]byte(`{
			"active":[{"id":"a","name":"Alice","faction":"Aeldari","armyListId":"list-1"}],
			"deleted":[{"id":"z","name":"Zed"}]
		}`))
	}))
	defer srv.Close()

	players, err := testClient(t, srv).ListPlayers(context.Background(), "ev1")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "Alice", players[0].Name)
	assert.Equal(t, "list-1", players[0].ListID)
}

func TestListPairingsDecodesStringPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ev1", r.URL.Query().Get("eventId"))
		assert.Contains(t, r.URL.RawQuery, "expand%5B%5D=player1")
		w.Write([]byte(`{"data":[{
			"id":"p1","eventId":"ev1","round":1,
			"player1":{"id":"a","name":"Alice","result":2,"gamePoints":"85"},
			"player2":{"id":"b","name":"Bob","result":0,"gamePoints":60}
		}]}`))
	}))
	defer srv.Close()

	pairings, err := testClient(t, srv).ListPairings(context.Background(), "ev1")
	require.NoError(t, err)
	require.Len(t, pairings, 1)
	assert.Equal(t, FlexFloat(85), pairings[0].Player1.Points)
	assert.Equal(t, FlexFloat(60), pairings[0].Player2.Points)
}

func TestFetchListTextNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	text, err := testClient(t, srv).FetchListText(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFetchListTextSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"list":"Char1: Captain (100 pts)"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	c.accessToken = "tok"
	text, err := c.FetchListText(context.Background(), "list-1")
	require.NoError(t, err)
	assert.Contains(t, text, "Captain")
}

func TestAuthenticateShortCircuitsOnCachedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected when a token is already cached")
	}))
	defer srv.Close()

	c := testClient(t, srv)
	c.accessToken = "cached"
	require.NoError(t, c.Authenticate(context.Background()))
	assert.True(t, c.Authenticated())
}

func TestAuthenticateTwoStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/authorize":
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "cid", user)
			assert.Equal(t, "csec", pass)
			w.Write([]byte(`{"code":"authcode"}`))
		case "/oauth/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authcode", r.PostForm.Get("code"))
			w.Write([]byte(`{"access_token":"at","refresh_token":"rt"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	t.Setenv(envClientID, "cid")
	t.Setenv(envClientSecret, "csec")
	t.Setenv(envAccessToken, "")

	c := testClient(t, srv)
	require.NoError(t, c.Authenticate(context.Background()))
	assert.True(t, c.Authenticated())
	assert.Equal(t, "at", c.accessToken)
}

func TestAuthenticateWithoutCredentials(t *testing.T) {
	t.Setenv(envClientID, "")
	t.Setenv(envClientSecret, "")
	t.Setenv(envAccessToken, "")

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := testClient(t, srv).Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}
