package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaforge/metaforge/pkg/models"
)

func sigEvent(date, title string) models.SignificantEvent {
	e := models.SignificantEvent{
		EventType: models.EventTypeBalanceUpdate,
		Date:      date,
		Title:     title,
	}
	e.ID = e.NewID()
	return e
}

func TestBuildTimelineInvariants(t *testing.T) {
	m, err := Build([]models.SignificantEvent{
		// Deliberately out of order: Build sorts.
		sigEvent("2025-09-15", "Dataslate September"),
		sigEvent("2025-03-15", "Dataslate March"),
		sigEvent("2025-06-15", "Dataslate June"),
	})
	require.NoError(t, err)

	tl := m.Timeline()
	require.Len(t, tl, 3)

	// Adjacent epochs abut exactly: end = next start - 1 day.
	assert.Equal(t, "2025-03-15", tl[0].StartDate)
	assert.Equal(t, "2025-06-14", tl[0].EndDate)
	assert.Equal(t, "2025-06-15", tl[1].StartDate)
	assert.Equal(t, "2025-09-14", tl[1].EndDate)
	assert.Equal(t, "2025-09-15", tl[2].StartDate)
	assert.Empty(t, tl[2].EndDate)

	// Exactly one epoch is current, the last one.
	currentCount := 0
	for _, e := range tl {
		if e.IsCurrent {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount)
	assert.True(t, tl[2].IsCurrent)

	// End event ids chain to the next epoch's start event.
	assert.Equal(t, tl[1].StartEventID, tl[0].EndEventID)
	assert.Equal(t, tl[2].StartEventID, tl[1].EndEventID)
}

func TestEpochForDate(t *testing.T) {
	m, err := Build([]models.SignificantEvent{
		sigEvent("2025-03-15", "March"),
		sigEvent("2025-06-15", "June"),
		sigEvent("2025-09-15", "September"),
	})
	require.NoError(t, err)
	tl := m.Timeline()

	// Mid-epoch date lands in the June epoch.
	assert.Equal(t, tl[1].ID, m.EpochForDate("2025-07-01"))
	// Start date is inclusive.
	assert.Equal(t, tl[1].ID, m.EpochForDate("2025-06-15"))
	// End date is inclusive.
	assert.Equal(t, tl[0].ID, m.EpochForDate("2025-06-14"))
	// Open-ended current epoch catches everything after its start.
	assert.Equal(t, tl[2].ID, m.EpochForDate("2026-01-01"))
	// Before the earliest event: pre-tracking.
	assert.Equal(t, models.PreTrackingEpochID, m.EpochForDate("2025-02-01"))
}

func TestEmptyMapper(t *testing.T) {
	m, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, models.PreTrackingEpochID, m.EpochForDate("2025-01-01"))
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestCurrent(t *testing.T) {
	m, err := Build([]models.SignificantEvent{sigEvent("2025-03-15", "March")})
	require.NoError(t, err)
	cur, ok := m.Current()
	require.True(t, ok)
	assert.True(t, cur.IsCurrent)
	assert.Equal(t, "2025-03-15", cur.StartDate)
}

func TestBuildRejectsBadDate(t *testing.T) {
	_, err := Build([]models.SignificantEvent{sigEvent("not-a-date", "Broken")})
	assert.Error(t, err)
}
