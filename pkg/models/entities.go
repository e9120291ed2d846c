// Package models defines the persisted entities of the meta tracker and
// their content-addressed identifiers. Entities are append-only on disk;
// a logical update is a new record with the same ID, deduplicated on read
// by keeping the last occurrence.
package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// SignificantEventType classifies timeline-creating events.
type SignificantEventType string

const (
	EventTypeBalanceUpdate  SignificantEventType = "balance_update"
	EventTypeEditionRelease SignificantEventType = "edition_release"
)

// SignificantEvent is a published balance update or edition release.
// Each one opens a new meta epoch.
type SignificantEvent struct {
	ID        string               `json:"id"`
	EventType SignificantEventType `json:"event_type"`
	Date      string               `json:"date"`
	Title     string               `json:"title"`
	SourceURL string               `json:"source_url,omitempty"`
	PDFURL    string               `json:"pdf_url,omitempty"`
	Summary   string               `json:"summary,omitempty"`
	Changes   *BalanceChanges      `json:"changes,omitempty"`
	Confidence Confidence          `json:"confidence,omitempty"`
}

// NewID computes the content-addressed ID for a significant event.
func (e *SignificantEvent) NewID() string {
	return ComputeID(string(e.EventType), e.Date, e.Title)
}

// BalanceChanges is the structured body of a balance pass.
type BalanceChanges struct {
	CoreRules      []string        `json:"core_rules,omitempty"`
	FactionChanges []FactionChange `json:"faction_changes,omitempty"`
}

// FactionChange describes what one balance pass did to one faction.
type FactionChange struct {
	Faction        string         `json:"faction"`
	Direction      string         `json:"direction,omitempty"` // "buff", "nerf", "mixed"
	Summary        string         `json:"summary,omitempty"`
	PointsChanges  []PointsChange `json:"points_changes,omitempty"`
	RulesChanges   []string       `json:"rules_changes,omitempty"`
	NewDetachments []string       `json:"new_detachments,omitempty"`
}

// PointsChange is a single unit cost adjustment.
type PointsChange struct {
	Unit      string `json:"unit"`
	OldPoints int    `json:"old_points"`
	NewPoints int    `json:"new_points"`
	Change    int    `json:"change"`
}

// PreTrackingEpochID is the reserved epoch for dates before the earliest
// significant event. It is a literal string, so it cannot collide with a
// 16-hex-char content hash.
const PreTrackingEpochID = "pre-tracking"

// MetaEpoch is a time window delimited by two consecutive significant events.
type MetaEpoch struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"` // empty while the epoch is open
	StartEventID string `json:"start_event_id"`
	EndEventID   string `json:"end_event_id,omitempty"`
	IsCurrent    bool   `json:"is_current"`
}

// NewID computes the content-addressed ID for an epoch.
func (e *MetaEpoch) NewID() string {
	return ComputeID(e.StartEventID)
}

// EventStatus tracks whether an event has results yet.
type EventStatus string

const (
	EventStatusCompleted EventStatus = "completed"
	EventStatusScheduled EventStatus = "scheduled"
)

// Event is one tournament.
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Date        string      `json:"date"`
	Location    string      `json:"location,omitempty"`
	PlayerCount int         `json:"player_count,omitempty"`
	RoundCount  int         `json:"round_count,omitempty"`
	Status      EventStatus `json:"status,omitempty"`
	SourceURL   string      `json:"source_url,omitempty"`
	SourceName  string      `json:"source_name,omitempty"`
	EpochID     string      `json:"epoch_id,omitempty"`
	Confidence  Confidence  `json:"confidence,omitempty"`
	NeedsReview bool        `json:"needs_review,omitempty"`
}

// NewID computes the content-addressed ID for an event.
func (e *Event) NewID() string {
	return ComputeID(e.Name, e.Date, e.Location)
}

// Placement is one player's final standing at one event.
type Placement struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	Rank         int        `json:"rank"`
	PlayerName   string     `json:"player_name"`
	Faction      string     `json:"faction,omitempty"`
	Subfaction   string     `json:"subfaction,omitempty"`
	Detachment   string     `json:"detachment,omitempty"`
	Wins         int        `json:"wins"`
	Losses       int        `json:"losses"`
	Draws        int        `json:"draws"`
	BattlePoints float64    `json:"battle_points,omitempty"`
	ListID       string     `json:"list_id,omitempty"`
	Allegiance   string     `json:"allegiance,omitempty"`
	EpochID      string     `json:"epoch_id,omitempty"`
	Confidence   Confidence `json:"confidence,omitempty"`
}

// NewID computes the content-addressed ID for a placement.
func (p *Placement) NewID() string {
	return ComputeID(p.EventID, strconv.Itoa(p.Rank), p.PlayerName)
}

// Unit is one datasheet entry inside an army list. Wargear ordering is
// preserved from the source text; it is diagnostic and not part of any ID.
type Unit struct {
	Name       string   `json:"name"`
	ModelCount int      `json:"model_count"`
	Points     int      `json:"points"`
	Wargear    []string `json:"wargear,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// ArmyList is the ordered sequence of units a player brought to an event.
type ArmyList struct {
	ID          string     `json:"id"`
	Faction     string     `json:"faction"`
	Subfaction  string     `json:"subfaction,omitempty"`
	Detachment  string     `json:"detachment,omitempty"`
	TotalPoints int        `json:"total_points"`
	Units       []Unit     `json:"units"`
	RawText     string     `json:"raw_text,omitempty"`
	SourceURL   string     `json:"source_url,omitempty"`
	EventID     string     `json:"event_id,omitempty"`
	EventDate   string     `json:"event_date,omitempty"`
	PlayerName  string     `json:"player_name,omitempty"`
	EpochID     string     `json:"epoch_id,omitempty"`
	Confidence  Confidence `json:"confidence,omitempty"`
}

// NewID computes the content-addressed ID for an army list. Unit names are
// sorted so that unit ordering differences do not change the identity.
func (l *ArmyList) NewID() string {
	names := make([]string, len(l.Units))
	for i, u := range l.Units {
		names[i] = u.Name
	}
	sort.Strings(names)
	return ComputeID(l.Faction, l.Detachment, strings.Join(names, ","), strconv.Itoa(l.TotalPoints))
}

// EnsureTotalPoints fills TotalPoints from the unit sum when the source did
// not state a total. A stated total below the unit sum is raised to the sum.
func (l *ArmyList) EnsureTotalPoints() {
	sum := 0
	for _, u := range l.Units {
		sum += u.Points
	}
	if l.TotalPoints < sum {
		l.TotalPoints = sum
	}
}

// GameResult is a per-player outcome of one pairing.
type GameResult string

const (
	ResultWin  GameResult = "win"
	ResultLoss GameResult = "loss"
	ResultDraw GameResult = "draw"
)

// Pairing is one round's game between two players at one event.
type Pairing struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Round     int        `json:"round"`
	Player1   string     `json:"player1"`
	Player2   string     `json:"player2"`
	P1Faction string     `json:"p1_faction,omitempty"`
	P2Faction string     `json:"p2_faction,omitempty"`
	P1Result  GameResult `json:"p1_result,omitempty"`
	P2Result  GameResult `json:"p2_result,omitempty"`
	P1Points  float64    `json:"p1_points,omitempty"`
	P2Points  float64    `json:"p2_points,omitempty"`
	EpochID   string     `json:"epoch_id,omitempty"`
}

// NewID computes the content-addressed ID for a pairing.
func (p *Pairing) NewID() string {
	return ComputeID(p.EventID, strconv.Itoa(p.Round), p.Player1, p.Player2)
}

// ReviewQueueItem flags one entity for a human pass. Unlike the other
// entities its ID is an opaque uuid; review items are not re-ingested.
type ReviewQueueItem struct {
	ID              string    `json:"id"`
	EntityType      string    `json:"entity_type"`
	EntityID        string    `json:"entity_id"`
	Reason          string    `json:"reason"`
	Details         string    `json:"details,omitempty"`
	Resolved        bool      `json:"resolved"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
