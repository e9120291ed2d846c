package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/models"
	"github.com/metaforge/metaforge/pkg/storage"
)

func significantEvent(date, title string) models.SignificantEvent {
	se := models.SignificantEvent{EventType: models.EventTypeBalanceUpdate, Date: date, Title: title}
	se.ID = se.NewID()
	return se
}

func storedEvent(name, date, url string) models.Event {
	ev := models.Event{Name: name, Date: date, Status: models.EventStatusCompleted, SourceURL: url}
	ev.ID = ev.NewID()
	return ev
}

// seedSourceEpoch fills one epoch directory with entities that straddle a
// later-introduced epoch boundary at 2025-06-01.
func seedSourceEpoch(t *testing.T, s *storage.Store, source string) (early, late models.Event) {
	t.Helper()
	early = storedEvent("Spring GT", "2025-03-01", "https://example.com/spring")
	late = storedEvent("Summer GT", "2025-07-01", "")
	require.NoError(t, s.AppendEvents(source, early, late))

	p1 := models.Placement{EventID: early.ID, Rank: 1, PlayerName: "Alice"}
	p1.ID = p1.NewID()
	p2 := models.Placement{EventID: late.ID, Rank: 1, PlayerName: "Bob"}
	p2.ID = p2.NewID()
	require.NoError(t, s.AppendPlacements(source, p1, p2))

	// One list resolvable by its own event date, one only by source URL.
	dated := models.ArmyList{Faction: "Aeldari", EventDate: "2025-07-02", Units: []models.Unit{{Name: "Farseer"}}}
	dated.ID = dated.NewID()
	byURL := models.ArmyList{Faction: "Orks", SourceURL: "https://example.com/spring", Units: []models.Unit{{Name: "Warboss"}}}
	byURL.ID = byURL.NewID()
	require.NoError(t, s.AppendLists(source, dated, byURL))

	pairing := models.Pairing{EventID: late.ID, Round: 1, Player1: "Bob", Player2: "Carol"}
	pairing.ID = pairing.NewID()
	require.NoError(t, s.AppendPairings(source, pairing))
	return early, late
}

func TestRepartitionMovesEntitiesWithTheirEvents(t *testing.T) {
	s, err := storage.New(t.TempDir())
	require.NoError(t, err)

	mapper, err := epoch.Build([]models.SignificantEvent{
		significantEvent("2025-01-01", "Launch"),
		significantEvent("2025-06-01", "Mid Year Dataslate"),
	})
	require.NoError(t, err)
	epochs := mapper.Timeline()
	firstID, secondID := epochs[0].ID, epochs[1].ID

	early, late := seedSourceEpoch(t, s, firstID)

	summary, err := NewRepartitioner(s).Run(mapper, firstID, RepartitionOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.EventsMoved)
	assert.Equal(t, 1, summary.PlacementsMoved)
	assert.Equal(t, 1, summary.ListsMoved) // the dated list; the URL list stays with its event
	assert.Equal(t, 1, summary.PairingsMoved)

	firstEvents, err := s.ReadEvents(firstID)
	require.NoError(t, err)
	require.Len(t, firstEvents, 1)
	assert.Equal(t, early.ID, firstEvents[0].ID)
	assert.Equal(t, firstID, firstEvents[0].EpochID)

	secondEvents, err := s.ReadEvents(secondID)
	require.NoError(t, err)
	require.Len(t, secondEvents, 1)
	assert.Equal(t, late.ID, secondEvents[0].ID)

	secondPlacements, err := s.ReadPlacements(secondID)
	require.NoError(t, err)
	require.Len(t, secondPlacements, 1)
	assert.Equal(t, "Bob", secondPlacements[0].PlayerName)
	assert.Equal(t, secondID, secondPlacements[0].EpochID)

	secondLists, err := s.ReadLists(secondID)
	require.NoError(t, err)
	require.Len(t, secondLists, 1)
	assert.Equal(t, "Aeldari", secondLists[0].Faction)

	firstLists, err := s.ReadLists(firstID)
	require.NoError(t, err)
	require.Len(t, firstLists, 1)
	assert.Equal(t, "Orks", firstLists[0].Faction)

	secondPairings, err := s.ReadPairings(secondID)
	require.NoError(t, err)
	assert.Len(t, secondPairings, 1)
}

func TestRepartitionRenamesSourceToBackup(t *testing.T) {
	s, err := storage.New(t.TempDir())
	require.NoError(t, err)

	mapper, err := epoch.Build([]models.SignificantEvent{
		significantEvent("2025-01-01", "Launch"),
		significantEvent("2025-06-01", "Mid Year Dataslate"),
	})
	require.NoError(t, err)
	firstID := mapper.Timeline()[0].ID
	seedSourceEpoch(t, s, firstID)

	_, err = NewRepartitioner(s).Run(mapper, firstID, RepartitionOptions{})
	require.NoError(t, err)

	dirs, err := s.ListEpochDirs()
	require.NoError(t, err)
	// The source was renamed to .bak (excluded from listing) and a fresh
	// directory with the same name was written for the entities that stay.
	assert.Contains(t, dirs, firstID)
	assert.NotContains(t, dirs, firstID+".bak")
}

func TestRepartitionDryRunTouchesNothing(t *testing.T) {
	s, err := storage.New(t.TempDir())
	require.NoError(t, err)

	mapper, err := epoch.Build([]models.SignificantEvent{
		significantEvent("2025-01-01", "Launch"),
		significantEvent("2025-06-01", "Mid Year Dataslate"),
	})
	require.NoError(t, err)
	firstID, secondID := mapper.Timeline()[0].ID, mapper.Timeline()[1].ID
	seedSourceEpoch(t, s, firstID)

	summary, err := NewRepartitioner(s).Run(mapper, firstID, RepartitionOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.EventsMoved)

	// Nothing written to the destination, source untouched.
	secondEvents, err := s.ReadEvents(secondID)
	require.NoError(t, err)
	assert.Empty(t, secondEvents)

	sourceEvents, err := s.ReadEvents(firstID)
	require.NoError(t, err)
	assert.Len(t, sourceEvents, 2)
}

func TestRepartitionKeepOriginals(t *testing.T) {
	s, err := storage.New(t.TempDir())
	require.NoError(t, err)

	mapper, err := epoch.Build([]models.SignificantEvent{
		significantEvent("2025-01-01", "Launch"),
		significantEvent("2025-06-01", "Mid Year Dataslate"),
	})
	require.NoError(t, err)
	firstID := mapper.Timeline()[0].ID
	seedSourceEpoch(t, s, firstID)

	_, err = NewRepartitioner(s).Run(mapper, firstID, RepartitionOptions{KeepOriginals: true})
	require.NoError(t, err)

	// Source still holds both events; read-time dedup absorbs the rewrite.
	sourceEvents, err := s.ReadEvents(firstID)
	require.NoError(t, err)
	assert.Len(t, sourceEvents, 2)
}
