package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/billing"
	"github.com/effortless-app/effortless-server/internal/database"
	"github.com/effortless-app/effortless-server/internal/extract"
	"github.com/effortless-app/effortless-server/internal/pulse"
	"github.com/effortless-app/effortless-server/internal/whatsapp"
)

// Extractor processes one raw user message into persisted items.
type Extractor interface {
	ExtractAndCreate(ctx context.Context, userID, text string) (*extract.Result, error)
}

// Sweeper runs one due-reminder sweep over the window since the last one.
type Sweeper interface {
	SweepNow(ctx context.Context) (pulse.Stats, error)
}

// Reconciler verifies all tracked subscriptions against their stores.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (billing.Tally, error)
}

type Server struct {
	db         *database.DB
	extractor  Extractor
	sweeper    Sweeper
	reconciler Reconciler
	waClient   *whatsapp.Client
	logger     *zap.Logger
	httpSrv    *http.Server
	port       int
}

// ServerConfig holds the wired dependencies for the HTTP surface.
type ServerConfig struct {
	DB         *database.DB
	Extractor  Extractor
	Sweeper    Sweeper
	Reconciler Reconciler
	WAClient   *whatsapp.Client
	Logger     *zap.Logger
	Port       int
}

func New(cfg ServerConfig) *Server {
	s := &Server{
		db:         cfg.DB,
		extractor:  cfg.Extractor,
		sweeper:    cfg.Sweeper,
		reconciler: cfg.Reconciler,
		waClient:   cfg.WAClient,
		logger:     cfg.Logger,
		port:       cfg.Port,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // extraction holds the request open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealthCheck)

	mux.HandleFunc("POST /api/v1/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/v1/users/{id}/tags", s.handleListTags)
	mux.HandleFunc("POST /api/v1/users/{id}/tags", s.handleCreateTag)
	mux.HandleFunc("POST /api/v1/tags/{id}/share", s.handleShareTag)
	mux.HandleFunc("POST /api/v1/shares/{id}/accept", s.handleAcceptShare)

	mux.HandleFunc("POST /api/v1/extract", s.handleExtract)
	mux.HandleFunc("POST /api/v1/pulse", s.handlePulse)
	mux.HandleFunc("POST /api/v1/subscriptions/reconcile", s.handleReconcile)
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.Int("port", s.port))
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
