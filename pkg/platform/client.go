// Package platform encapsulates the third-party tournament platform's
// HTTP protocol: OAuth, event discovery, players, pairings, and list
// retrieval. Standings are never taken from the server; they are
// recomputed from pairings (see standings.go).
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/metaforge/metaforge/pkg/fetch"
)

// Environment variables that short-circuit the OAuth dance.
const (
	envAccessToken  = "PLATFORM_ACCESS_TOKEN"
	envRefreshToken = "PLATFORM_REFRESH_TOKEN"
	envClientID     = "PLATFORM_CLIENT_ID"
	envClientSecret = "PLATFORM_CLIENT_SECRET"
)

// ErrNoCredentials is returned by Authenticate when neither cached tokens
// nor client credentials are available. Most endpoints still work without
// auth; only per-player list retrieval requires it.
var ErrNoCredentials = errors.New("no platform credentials configured")

// Client talks to one tournament platform instance.
type Client struct {
	baseURL   string
	mirrorURL string // secondary endpoint serving raw list text
	fetcher   *fetch.Fetcher
	http      *http.Client

	accessToken  string
	refreshToken string
}

// New builds a Client. fetcher handles unauthenticated, cacheable GETs;
// httpClient handles the OAuth dance and authenticated calls.
func New(baseURL, mirrorURL string, fetcher *fetch.Fetcher, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		mirrorURL:   strings.TrimRight(mirrorURL, "/"),
		fetcher:     fetcher,
		http:        httpClient,
		accessToken: os.Getenv(envAccessToken),
	}
}

// Authenticated reports whether the client holds an access token.
func (c *Client) Authenticated() bool { return c.accessToken != "" }

// Authenticate performs the two-step OAuth dance unless a cached token
// from the environment already short-circuited it.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.accessToken != "" {
		return nil
	}
	clientID := os.Getenv(envClientID)
	clientSecret := os.Getenv(envClientSecret)
	if clientID == "" || clientSecret == "" {
		return ErrNoCredentials
	}

	// Step 1: basic-auth authorize -> authorization code.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/authorize", nil)
	if err != nil {
		return fmt.Errorf("failed to build authorize request: %w", err)
	}
	req.SetBasicAuth(clientID, clientSecret)

	var authz struct {
		Code string `json:"code"`
	}
	if err := c.doJSON(req, &authz); err != nil {
		return fmt.Errorf("oauth authorize failed: %w", err)
	}

	// Step 2: exchange the code for tokens.
	form := url.Values{"grant_type": {"authorization_code"}, "code": {authz.Code}}
	tokReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	tokReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.doJSON(tokReq, &tok); err != nil {
		return fmt.Errorf("oauth token exchange failed: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.refreshToken = tok.RefreshToken
	slog.Info("Platform authentication complete")
	return nil
}

// DiscoverEvents lists events in [startDate, endDate], tolerating both the
// paginated {data: [...]} envelope and a bare array.
func (c *Client) DiscoverEvents(ctx context.Context, startDate, endDate string, limit int) ([]PlatformEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	u := fmt.Sprintf("%s/events?startDate=%s&endDate=%s&gameType=1&limit=%d",
		c.baseURL, url.QueryEscape(startDate), url.QueryEscape(endDate), limit)

	body, err := c.fetcher.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("event discovery failed: %w", err)
	}
	return decodeEventList(body)
}

// decodeEventList handles the two response shapes the platform emits.
func decodeEventList(body []byte) ([]PlatformEvent, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var events []PlatformEvent
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, fmt.Errorf("failed to decode event array: %w", err)
		}
		return events, nil
	}
	var envelope struct {
		Data []PlatformEvent `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	return envelope.Data, nil
}

// ListPlayers returns the active registrants of an event. Deleted
// registrations are discarded.
func (c *Client) ListPlayers(ctx context.Context, eventID string) ([]PlatformPlayer, error) {
	u := fmt.Sprintf("%s/events/%s/players?limit=500", c.baseURL, url.PathEscape(eventID))
	body, err := c.fetcher.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("players listing failed for event %s: %w", eventID, err)
	}
	var envelope playersEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode players for event %s: %w", eventID, err)
	}
	return envelope.Active, nil
}

// ListPairings returns all per-round game results of an event with both
// players expanded inline.
func (c *Client) ListPairings(ctx context.Context, eventID string) ([]PlatformPairing, error) {
	u := fmt.Sprintf("%s/pairings?eventId=%s&pairingType=Pairing&expand[]=player1&expand[]=player2&limit=500",
		c.baseURL, url.QueryEscape(eventID))
	body, err := c.fetcher.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("pairings listing failed for event %s: %w", eventID, err)
	}
	var envelope struct {
		Data []PlatformPairing `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Bare array fallback, same as event discovery.
		var pairings []PlatformPairing
		if err2 := json.Unmarshal(body, &pairings); err2 != nil {
			return nil, fmt.Errorf("failed to decode pairings for event %s: %w", eventID, err)
		}
		return pairings, nil
	}
	return envelope.Data, nil
}

// FetchListText retrieves a player's raw list text from the mirror
// endpoint. A 404 means the list was never uploaded and yields ("", nil).
func (c *Client) FetchListText(ctx context.Context, listID string) (string, error) {
	u := fmt.Sprintf("%s/lists/%s", c.mirrorURL, url.PathEscape(listID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build list request: %w", err)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("list fetch failed for %s: %w", listID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &fetch.HTTPStatusError{Status: resp.StatusCode, Reason: resp.Status}
	}

	var payload struct {
		List string `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode list %s: %w", listID, err)
	}
	return payload.List, nil
}

// doJSON executes a request and decodes a JSON body, mapping non-2xx to a
// typed status error.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &fetch.HTTPStatusError{Status: resp.StatusCode, Reason: resp.Status}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
