// Package api exposes the read-only HTTP surface over the analytics engine
// plus the localhost-only refresh controls. All responses are JSON; list
// endpoints share one pagination envelope and non-2xx responses share one
// error envelope.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metaforge/metaforge/pkg/analytics"
	"github.com/metaforge/metaforge/pkg/config"
	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/storage"
	"github.com/metaforge/metaforge/pkg/syncer"
)

const shutdownGrace = 10 * time.Second

// Server wires the HTTP routes to the engine, the store, and the sync
// orchestrator.
type Server struct {
	cfg     config.ServerConfig
	store   *storage.Store
	engine  *analytics.Engine
	syncer  *syncer.Orchestrator
	epochs  *epoch.Holder
	backend llm.Backend
	traffic *trafficStats
	log     *slog.Logger
}

// New builds a Server. backend may be nil; /healthz then reports it absent.
func New(cfg config.ServerConfig, store *storage.Store, engine *analytics.Engine,
	orch *syncer.Orchestrator, epochs *epoch.Holder, backend llm.Backend) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		engine:  engine,
		syncer:  orch,
		epochs:  epochs,
		backend: backend,
		traffic: newTrafficStats(),
		log:     slog.With("component", "api"),
	}
}

// Router builds the gin engine with all routes and middleware registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(s.cfg.CORSOrigin))
	r.Use(s.traffic.middleware())

	r.GET("/healthz", s.healthHandler)

	api := r.Group("/api")
	{
		api.GET("/events", s.listEventsHandler)
		api.GET("/events/:id", s.getEventHandler)
		api.GET("/epochs", s.listEpochsHandler)
		api.GET("/balance", s.listBalanceHandler)
		api.GET("/balance/:id", s.getBalanceHandler)
		api.GET("/meta/factions", s.metaFactionsHandler)
		api.GET("/meta/factions/:name", s.factionDetailHandler)
		api.GET("/reviews", s.listReviewsHandler)

		an := api.Group("/analytics")
		{
			an.GET("/overview", s.overviewHandler)
			an.GET("/trends", s.trendsHandler)
			an.GET("/players", s.playersHandler)
			an.GET("/units", s.unitsHandler)
			an.GET("/detachments", s.detachmentsHandler)
			an.GET("/unit-performance", s.unitPerformanceHandler)
			an.GET("/points-efficiency", s.pointsEfficiencyHandler)
			an.GET("/matchups", s.matchupsHandler)
			an.GET("/archetypes", s.archetypesHandler)
			an.GET("/win-rates", s.winRatesHandler)
			an.GET("/composite-scores", s.compositeScoresHandler)
		}

		api.GET("/refresh/preview", s.refreshPreviewHandler)
		api.POST("/refresh", localOnly(), s.startRefreshHandler)
		api.GET("/refresh/status", s.refreshStatusHandler)
		api.GET("/traffic", s.trafficHandler)
	}
	return r
}

// Run serves until ctx is cancelled, then drains with a grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
