// Package server exposes the aggregated read models over HTTP and
// receives chainhook webhook deliveries.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickship/internal/aggregate"
	"clickship/internal/model"
)

// EventStore persists webhook events and the running counter. A nil store
// keeps the server fully functional with in-memory counting only.
type EventStore interface {
	InsertGmEvents(ctx context.Context, events []model.WebhookEvent) (int64, error)
	BumpCounter(ctx context.Context, n uint64) (model.Counter, error)
	LoadCounter(ctx context.Context) (model.Counter, error)
}

// Config controls the HTTP listener.
type Config struct {
	Addr string
	// WebhookToken authenticates chainhook deliveries. Empty disables the
	// webhook endpoint entirely rather than accepting unauthenticated posts.
	WebhookToken string
	// StatsTTL is how long a published GM section still counts as fresh.
	StatsTTL time.Duration
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Server serves read-model snapshots and the webhook sink.
type Server struct {
	cfg       Config
	refresher *aggregate.Refresher
	voting    *aggregate.VotingStatsAggregator
	store     EventStore
	logger    *zap.Logger

	counterMu  sync.Mutex
	counter    model.Counter
	counterDay string
}

// New wires the server. The store may be nil.
func New(cfg Config, refresher *aggregate.Refresher, voting *aggregate.VotingStatsAggregator, store EventStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg.withDefaults(),
		refresher: refresher,
		voting:    voting,
		store:     store,
		logger:    logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware)
		r.Get("/stats", s.handleStats)
		r.Get("/gm", s.handleGm)
		r.Get("/messages", s.handleMessages)
		r.Get("/polls", s.handlePolls)
		r.Get("/users/{principal}/voting-stats", s.handleVotingStats)
		r.Post("/webhook", s.handleWebhook)
	})

	return r
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
