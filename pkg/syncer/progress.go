package syncer

import "time"

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// EventSyncStatus is the per-event state inside a run.
type EventSyncStatus string

const (
	EventPending EventSyncStatus = "pending"
	EventSyncing EventSyncStatus = "syncing"
	EventDone    EventSyncStatus = "done"
	EventSkipped EventSyncStatus = "skipped"
)

// SyncEventProgress tracks one discovered event through the result-sync
// phase.
type SyncEventProgress struct {
	Name            string          `json:"name"`
	Date            string          `json:"date"`
	PlayerCount     int             `json:"player_count"`
	Status          EventSyncStatus `json:"status"`
	PlacementsFound int             `json:"placements_found"`
	ListsFound      int             `json:"lists_found"`
	Detail          string          `json:"detail,omitempty"`
}

// Window is the date range a sync run covers, inclusive on both ends.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Progress is the externally visible state of the current or last sync run.
// A single writer (the orchestrator) mutates it behind a lock; readers get
// copies.
type Progress struct {
	Status            RunStatus           `json:"status"`
	Phase             string              `json:"phase,omitempty"`
	Window            Window              `json:"window"`
	StartedAt         time.Time           `json:"started_at,omitempty"`
	FinishedAt        time.Time           `json:"finished_at,omitempty"`
	Events            []SyncEventProgress `json:"events,omitempty"`
	CurrentEventIndex int                 `json:"current_event_index,omitempty"` // 1-based
	NewBalanceEvents  int                 `json:"new_balance_events"`
	EventsSynced      int                 `json:"events_synced"`
	PlacementsWritten int                 `json:"placements_written"`
	ListsWritten      int                 `json:"lists_written"`
	FutureEventsFound int                 `json:"future_events_found"`
	Errors            []string            `json:"errors"`
}

// clone deep-copies the progress so readers never alias the live slice.
func (p Progress) clone() Progress {
	out := p
	out.Events = append([]SyncEventProgress(nil), p.Events...)
	out.Errors = append([]string(nil), p.Errors...)
	return out
}
