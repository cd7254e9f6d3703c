// Package api exposes the analytics pipeline over HTTP: boundary ingest,
// choropleth and dot strip queries, and the refresh trigger. All endpoints
// speak JSON with permissive CORS; failures map to an {error: message}
// envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scout-pos/geo-analytics/internal/analytics"
	"github.com/scout-pos/geo-analytics/internal/ingest"
	"github.com/scout-pos/geo-analytics/internal/refresh"
	"github.com/scout-pos/geo-analytics/internal/store"
)

// Server wires the pipeline components behind the HTTP surface.
type Server struct {
	store          store.Store
	ingestor       *ingest.BoundaryIngestor
	classifier     *analytics.Classifier
	orchestrator   *refresh.Orchestrator
	log            *zap.Logger
	dataDir        string
	refreshLimiter *rate.Limiter
	now            func() time.Time
}

// Config carries the server knobs the handlers need.
type Config struct {
	// DataDir is where storage-key ingest requests resolve files.
	DataDir string
	// RefreshInterval is the minimum spacing between refresh requests.
	RefreshInterval time.Duration
}

func NewServer(st store.Store, ingestor *ingest.BoundaryIngestor, classifier *analytics.Classifier, orchestrator *refresh.Orchestrator, log *zap.Logger, cfg Config) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Server{
		store:          st,
		ingestor:       ingestor,
		classifier:     classifier,
		orchestrator:   orchestrator,
		log:            log,
		dataDir:        cfg.DataDir,
		refreshLimiter: rate.NewLimiter(rate.Every(interval), 1),
		now:            time.Now,
	}
}

// Routes builds the chi router for the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/geo", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Get("/choropleth", s.handleChoropleth)
		r.Get("/dotstrip", s.handleDotstrip)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}
