// Package analytics serves statistical views over the normalized store:
// win rates, meta shares, composite scores, archetype clusters, trends,
// and the supporting joins. Computations run over a snapshot of the store
// cached for a short TTL; a refresh invalidates the snapshot explicitly.
package analytics

import (
	"math"

	gocache "github.com/patrickmn/go-cache"

	"github.com/metaforge/metaforge/pkg/config"
	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/storage"
)

const snapshotKey = "dataset"

// Engine computes analytics over the store.
type Engine struct {
	store  *storage.Store
	epochs *epoch.Holder
	cfg    config.AnalyticsConfig
	cache  *gocache.Cache
}

// New builds an Engine. cfg supplies the Bayesian prior weight, the
// survivorship threshold, and the snapshot TTL.
func New(store *storage.Store, epochs *epoch.Holder, cfg config.AnalyticsConfig) *Engine {
	return &Engine{
		store:  store,
		epochs: epochs,
		cfg:    cfg,
		cache:  gocache.New(cfg.CacheTTL(), 2*cfg.CacheTTL()),
	}
}

// Invalidate drops the cached snapshot. The sync orchestrator calls this
// after a successful run so the next query sees fresh data.
func (e *Engine) Invalidate() {
	e.cache.Flush()
}

// snapshot returns the cached dataset, loading it on miss.
func (e *Engine) snapshot() (*dataset, error) {
	if v, ok := e.cache.Get(snapshotKey); ok {
		return v.(*dataset), nil
	}
	ds, err := loadDataset(e.store, e.cfg.TopOnlyMaxRank)
	if err != nil {
		return nil, err
	}
	e.cache.SetDefault(snapshotKey, ds)
	return ds, nil
}

// round1 rounds rates and shares to one decimal place.
func round1(x float64) float64 { return math.Round(x*10) / 10 }

// round2 rounds efficiency and overrepresentation to two decimal places.
func round2(x float64) float64 { return math.Round(x*100) / 100 }
