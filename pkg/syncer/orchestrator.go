// Package syncer orchestrates ingestion: balance tracking, result sync,
// future event discovery, epoch repartitioning, and the epoch mapper
// rebuild. A run is a single cooperative task; per-event work is sequential
// so that rate limits and progress stay predictable.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metaforge/metaforge/pkg/agent"
	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/fetch"
	"github.com/metaforge/metaforge/pkg/listparse"
	"github.com/metaforge/metaforge/pkg/models"
	"github.com/metaforge/metaforge/pkg/platform"
	"github.com/metaforge/metaforge/pkg/storage"
)

// ErrAlreadyRunning is returned by Start when a sync is in flight. The HTTP
// surface maps it to 409 Conflict.
var ErrAlreadyRunning = errors.New("a sync is already running")

// errCancelled is the internal signal that the run observed cancellation at
// a suspension point. It is terminal but not an error for consumers.
var errCancelled = errors.New("sync cancelled")

// defaultTopN bounds how many placements per event get list retrieval.
const defaultTopN = 10

// futureWindowDays is how far ahead future discovery looks.
const futureWindowDays = 60

// Options wires an Orchestrator.
type Options struct {
	Store      *storage.Store
	Platform   *platform.Client
	Fetcher    *fetch.Fetcher
	Balance    *agent.BalanceWatcher
	Normalizer *agent.ListNormalizer
	Epochs     *epoch.Holder
	BalanceURL string
	TopN       int
}

// Orchestrator runs sync passes one at a time and exposes their progress.
type Orchestrator struct {
	store      *storage.Store
	client     *platform.Client
	fetcher    *fetch.Fetcher
	watcher    *agent.BalanceWatcher
	normalizer *agent.ListNormalizer
	epochs     *epoch.Holder
	balanceURL string
	topN       int
	now        func() time.Time
	log        *slog.Logger

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	cancelled atomic.Bool

	progMu     sync.RWMutex
	progress   Progress
	onProgress func(Progress)
}

// New builds an Orchestrator from its dependencies.
func New(opts Options) *Orchestrator {
	topN := opts.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Orchestrator{
		store:      opts.Store,
		client:     opts.Platform,
		fetcher:    opts.Fetcher,
		watcher:    opts.Balance,
		normalizer: opts.Normalizer,
		epochs:     opts.Epochs,
		balanceURL: opts.BalanceURL,
		topN:       topN,
		now:        time.Now,
		log:        slog.With("component", "syncer"),
		progress:   Progress{Status: StatusIdle},
	}
}

// OnProgress registers the single progress callback. It is invoked
// synchronously on every update and must not block.
func (o *Orchestrator) OnProgress(cb func(Progress)) {
	o.progMu.Lock()
	o.onProgress = cb
	o.progMu.Unlock()
}

// Progress returns a copy of the current or last run's state.
func (o *Orchestrator) Progress() Progress {
	o.progMu.RLock()
	defer o.progMu.RUnlock()
	return o.progress.clone()
}

// update mutates the progress under the lock and fires the callback.
func (o *Orchestrator) update(fn func(p *Progress)) {
	o.progMu.Lock()
	fn(&o.progress)
	snapshot := o.progress.clone()
	cb := o.onProgress
	o.progMu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Start launches a sync run for the window in the background. It returns
// ErrAlreadyRunning when a run is in flight.
func (o *Orchestrator) Start(window Window) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if o.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.running = true
	o.cancel = cancel
	o.cancelled.Store(false)

	o.update(func(p *Progress) {
		*p = Progress{
			Status:    StatusRunning,
			Window:    window,
			StartedAt: o.now(),
			Errors:    []string{},
		}
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.run(ctx, window)

		o.runMu.Lock()
		o.running = false
		o.cancel = nil
		o.runMu.Unlock()
	}()
	return nil
}

// Cancel requests cooperative cancellation of the in-flight run. It is a
// no-op when nothing is running.
func (o *Orchestrator) Cancel() {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	o.cancelled.Store(true)
	if o.cancel != nil {
		o.cancel()
	}
}

// Wait blocks until the in-flight run (if any) finishes.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// isCancelled is checked at every suspension point.
func (o *Orchestrator) isCancelled(ctx context.Context) bool {
	return o.cancelled.Load() || ctx.Err() != nil
}

// run executes the five phases in strict order.
func (o *Orchestrator) run(ctx context.Context, window Window) {
	finish := func(status RunStatus) {
		o.update(func(p *Progress) {
			p.Status = status
			p.Phase = ""
			p.FinishedAt = o.now()
			if status == StatusCancelled {
				p.Errors = []string{}
			}
		})
	}

	// Phase 1: balance check (non-critical).
	o.setPhase("balance_check")
	newBalance, err := o.checkBalance(ctx)
	if err != nil {
		if errors.Is(err, errCancelled) {
			finish(StatusCancelled)
			return
		}
		o.appendError(fmt.Sprintf("balance check: %v", err))
	}
	o.update(func(p *Progress) { p.NewBalanceEvents = newBalance })
	if o.isCancelled(ctx) {
		finish(StatusCancelled)
		return
	}

	// Phase 2: result sync (critical).
	o.setPhase("result_sync")
	if err := o.syncResults(ctx, window); err != nil {
		if errors.Is(err, errCancelled) {
			finish(StatusCancelled)
			return
		}
		o.appendError(fmt.Sprintf("Sync failed: %v", err))
		finish(StatusFailed)
		return
	}

	// Phase 3: future discovery (non-critical).
	o.setPhase("future_discovery")
	if err := o.discoverFuture(ctx); err != nil {
		if errors.Is(err, errCancelled) {
			finish(StatusCancelled)
			return
		}
		o.appendError(fmt.Sprintf("future discovery: %v", err))
	}
	if o.isCancelled(ctx) {
		finish(StatusCancelled)
		return
	}

	// Phase 4: repartition the previously current epoch when the balance
	// check opened a new one (non-critical).
	if newBalance > 0 {
		o.setPhase("repartition")
		if err := o.repartitionCurrent(); err != nil {
			o.appendError(fmt.Sprintf("repartition: %v", err))
		}
	}

	// Phase 5: mapper rebuild (non-critical).
	o.setPhase("mapper_rebuild")
	if err := o.rebuildMapper(); err != nil {
		o.appendError(fmt.Sprintf("mapper rebuild: %v", err))
	}

	finish(StatusCompleted)
}

func (o *Orchestrator) setPhase(phase string) {
	o.log.Info("Sync phase", "phase", phase)
	o.update(func(p *Progress) { p.Phase = phase })
}

func (o *Orchestrator) appendError(msg string) {
	o.log.Error("Sync phase error", "error", msg)
	o.update(func(p *Progress) { p.Errors = append(p.Errors, msg) })
}

// checkBalance fetches the balance landing page fresh, runs the balance
// watcher against the known-id set, and appends genuinely new significant
// events. Returns how many were added.
func (o *Orchestrator) checkBalance(ctx context.Context) (int, error) {
	if o.watcher == nil || o.balanceURL == "" {
		return 0, nil
	}
	if o.isCancelled(ctx) {
		return 0, errCancelled
	}

	body, err := o.fetcher.GetFresh(ctx, o.balanceURL)
	if err != nil {
		return 0, fmt.Errorf("fetching balance page: %w", err)
	}

	known, err := o.store.ReadSignificantEvents()
	if err != nil {
		return 0, err
	}
	knownIDs := make([]string, len(known))
	for i, ev := range known {
		knownIDs[i] = ev.ID
	}

	fresh, err := o.watcher.Execute(ctx, string(body), knownIDs)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := o.store.AppendSignificantEvents(fresh...); err != nil {
		return 0, err
	}
	for _, ev := range fresh {
		o.log.Info("New significant event", "title", ev.Title, "date", ev.Date)
	}
	return len(fresh), nil
}

// syncResults discovers events in the window and ingests every past,
// visible, non-team event sequentially.
func (o *Orchestrator) syncResults(ctx context.Context, window Window) error {
	if o.isCancelled(ctx) {
		return errCancelled
	}
	discovered, err := o.client.DiscoverEvents(ctx, window.From, window.To, 100)
	if err != nil {
		return err
	}

	entries := make([]SyncEventProgress, len(discovered))
	for i, ev := range discovered {
		entries[i] = SyncEventProgress{
			Name: ev.Name, Date: ev.StartDate, PlayerCount: ev.PlayerCount,
			Status: EventPending,
		}
	}
	o.update(func(p *Progress) { p.Events = entries })

	today := models.FormatDate(o.now())
	for i, ev := range discovered {
		if o.isCancelled(ctx) {
			return errCancelled
		}
		o.update(func(p *Progress) {
			p.CurrentEventIndex = i + 1
			p.Events[i].Status = EventSyncing
		})

		if skip, reason := skipReason(ev, today); skip {
			o.update(func(p *Progress) {
				p.Events[i].Status = EventSkipped
				p.Events[i].Detail = reason
			})
			continue
		}

		placements, lists, err := o.syncOneEvent(ctx, ev)
		if err != nil {
			if errors.Is(err, errCancelled) {
				return err
			}
			return fmt.Errorf("event %q: %w", ev.Name, err)
		}

		o.update(func(p *Progress) {
			p.Events[i].Status = EventDone
			p.Events[i].PlacementsFound = placements
			p.Events[i].ListsFound = lists
			p.EventsSynced++
			p.PlacementsWritten += placements
			p.ListsWritten += lists
		})
	}
	return nil
}

// skipReason decides whether a discovered event is ingestible.
func skipReason(ev platform.PlatformEvent, today string) (bool, string) {
	switch {
	case ev.IsTeamEvent:
		return true, "team event"
	case ev.HiddenPlacings:
		return true, "placings hidden"
	case models.DateBefore(today, ev.StartDate):
		return true, "not finished yet"
	}
	return false, ""
}

// syncOneEvent persists one event with its placements, pairings, and top-N
// army lists. Returns the placement and list counts.
func (o *Orchestrator) syncOneEvent(ctx context.Context, pe platform.PlatformEvent) (int, int, error) {
	mapper := o.epochs.Get()

	ev := models.Event{
		Name:        pe.Name,
		Date:        pe.StartDate,
		Location:    pe.Location,
		PlayerCount: pe.PlayerCount,
		RoundCount:  pe.RoundCount,
		Status:      models.EventStatusCompleted,
		SourceName:  "platform",
		EpochID:     mapper.EpochForDate(pe.StartDate),
	}
	ev.ID = ev.NewID()
	if err := o.store.AppendEvents(ev.EpochID, ev); err != nil {
		return 0, 0, err
	}

	if o.isCancelled(ctx) {
		return 0, 0, errCancelled
	}
	players, err := o.client.ListPlayers(ctx, pe.ID)
	if err != nil {
		return 0, 0, err
	}
	if o.isCancelled(ctx) {
		return 0, 0, errCancelled
	}
	rawPairings, err := o.client.ListPairings(ctx, pe.ID)
	if err != nil {
		return 0, 0, err
	}

	pairings := make([]models.Pairing, 0, len(rawPairings))
	for _, rp := range rawPairings {
		pairing := models.Pairing{
			EventID:   ev.ID,
			Round:     rp.Round,
			Player1:   rp.Player1.Name,
			Player2:   rp.Player2.Name,
			P1Faction: rp.Player1.Faction,
			P2Faction: rp.Player2.Faction,
			P1Result:  models.GameResult(rp.Player1.Outcome()),
			P2Result:  models.GameResult(rp.Player2.Outcome()),
			P1Points:  float64(rp.Player1.Points),
			P2Points:  float64(rp.Player2.Points),
			EpochID:   ev.EpochID,
		}
		pairing.ID = pairing.NewID()
		pairings = append(pairings, pairing)
	}
	if len(pairings) > 0 {
		if err := o.store.AppendPairings(ev.EpochID, pairings...); err != nil {
			return 0, 0, err
		}
	}

	standings := platform.ComputeStandings(rawPairings, players)

	placements := make([]models.Placement, 0, len(standings))
	lists := 0
	for _, st := range standings {
		placement := models.Placement{
			EventID:      ev.ID,
			Rank:         st.Rank,
			PlayerName:   st.PlayerName,
			Faction:      st.Faction,
			Wins:         st.Wins,
			Losses:       st.Losses,
			Draws:        st.Draws,
			BattlePoints: st.BattlePoints,
			EpochID:      ev.EpochID,
			Confidence:   models.ConfidenceHigh,
		}

		if st.Rank <= o.topN && st.ListID != "" {
			list, err := o.ingestList(ctx, ev, st)
			if err != nil {
				if errors.Is(err, errCancelled) {
					return 0, 0, err
				}
				o.log.Warn("List ingestion failed", "event", ev.Name,
					"player", st.PlayerName, "error", err)
			} else if list != nil {
				placement.ListID = list.ID
				if list.Subfaction != "" || list.Faction != placement.Faction {
					placement.Faction, placement.Subfaction, placement.Allegiance =
						models.ResolveFaction(list.Faction, list.Subfaction)
				}
				lists++
			}
		}

		placement.ID = placement.NewID()
		placements = append(placements, placement)
	}
	if len(placements) > 0 {
		if err := o.store.AppendPlacements(ev.EpochID, placements...); err != nil {
			return 0, 0, err
		}
	}
	return len(placements), lists, nil
}

// ingestList fetches and normalizes one player's army list. The
// deterministic parser runs first; the list normalizer agent is the
// escalation path when the parser recognizes nothing. Returns nil when the
// player never uploaded a list.
func (o *Orchestrator) ingestList(ctx context.Context, ev models.Event, st platform.Standing) (*models.ArmyList, error) {
	if o.isCancelled(ctx) {
		return nil, errCancelled
	}
	text, err := o.client.FetchListText(ctx, st.ListID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	var list models.ArmyList
	reviewNotes := ""
	units := listparse.Parse(text)
	if len(units) > 0 {
		list = models.ArmyList{
			Faction:    st.Faction,
			Units:      units,
			RawText:    text,
			Confidence: models.ConfidenceHigh,
		}
	} else {
		if o.normalizer == nil {
			return nil, nil
		}
		normalized, err := o.normalizer.Execute(ctx, text, st.Faction, st.PlayerName)
		if err != nil {
			return nil, err
		}
		list = normalized.List
		reviewNotes = normalized.Notes
	}

	// The platform tags umbrella factions; the list text sometimes names
	// the specific chapter.
	if chapter := listparse.DetectChapter(text); chapter != "" {
		list.Faction, list.Subfaction, _ = models.ResolveFaction(list.Faction, chapter)
	}

	list.EventID = ev.ID
	list.EventDate = ev.Date
	list.PlayerName = st.PlayerName
	list.EpochID = ev.EpochID
	list.EnsureTotalPoints()
	list.ID = list.NewID()

	if list.Confidence.NeedsReview() {
		if _, err := o.store.EnqueueReview("army_list", list.ID, "low_confidence", reviewNotes); err != nil {
			o.log.Warn("Failed to enqueue review", "list_id", list.ID, "error", err)
		}
	}

	if err := o.store.AppendLists(ev.EpochID, list); err != nil {
		return nil, err
	}
	return &list, nil
}

// discoverFuture persists upcoming events in (today, today+60d] as
// scheduled, assigned to the current epoch.
func (o *Orchestrator) discoverFuture(ctx context.Context) error {
	if o.isCancelled(ctx) {
		return errCancelled
	}
	today := o.now()
	from := models.FormatDate(today.AddDate(0, 0, 1))
	to := models.FormatDate(today.AddDate(0, 0, futureWindowDays))

	discovered, err := o.client.DiscoverEvents(ctx, from, to, 100)
	if err != nil {
		return err
	}
	if len(discovered) == 0 {
		return nil
	}

	mapper := o.epochs.Get()
	byEpoch := make(map[string][]models.Event)
	for _, pe := range discovered {
		ev := models.Event{
			Name:        pe.Name,
			Date:        pe.StartDate,
			Location:    pe.Location,
			PlayerCount: pe.PlayerCount,
			RoundCount:  pe.RoundCount,
			Status:      models.EventStatusScheduled,
			SourceName:  "platform",
			EpochID:     mapper.EpochForDate(pe.StartDate),
		}
		ev.ID = ev.NewID()
		byEpoch[ev.EpochID] = append(byEpoch[ev.EpochID], ev)
	}
	for epochID, events := range byEpoch {
		if err := o.store.AppendEvents(epochID, events...); err != nil {
			return err
		}
	}
	o.update(func(p *Progress) { p.FutureEventsFound = len(discovered) })
	return nil
}

// repartitionCurrent re-files the previously current epoch against a mapper
// rebuilt with the newly discovered significant events.
func (o *Orchestrator) repartitionCurrent() error {
	source, ok := o.epochs.Get().Current()
	if !ok {
		return nil
	}
	significant, err := o.store.ReadSignificantEvents()
	if err != nil {
		return err
	}
	rebuilt, err := epoch.Build(significant)
	if err != nil {
		return err
	}
	summary, err := NewRepartitioner(o.store).Run(rebuilt, source.ID, RepartitionOptions{})
	if err != nil {
		return err
	}
	o.log.Info("Repartitioned epoch", "source", source.ID,
		"events_moved", summary.EventsMoved, "placements_moved", summary.PlacementsMoved,
		"lists_moved", summary.ListsMoved)
	return nil
}

// rebuildMapper reloads significant events and publishes a fresh mapper.
func (o *Orchestrator) rebuildMapper() error {
	significant, err := o.store.ReadSignificantEvents()
	if err != nil {
		return err
	}
	rebuilt, err := epoch.Build(significant)
	if err != nil {
		return err
	}
	o.epochs.Set(rebuilt)
	return nil
}
