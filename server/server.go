package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richinsley/tryon2go/config"
	"github.com/richinsley/tryon2go/tryon"
	"golang.org/x/time/rate"
)

// TryOnRunner performs one try-on. *client.FalClient implements it.
type TryOnRunner interface {
	TryOn(ctx context.Context, model, garment *tryon.ImageFile, opts tryon.Options, progress func(string)) (*tryon.Result, error)
}

type Server struct {
	cfg           config.Config
	runner        TryOnRunner
	jobs          *JobRegistry
	clock         clockwork.Clock
	limiter       *rate.Limiter
	inflight      chan struct{}
	upgrader      websocket.Upgrader
	sentryEnabled bool
	server        *http.Server

	// cancelled on shutdown, parent of every job context
	baseCtx    context.Context
	cancelJobs context.CancelFunc
}

func New(cfg config.Config, runner TryOnRunner, clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:           cfg,
		runner:        runner,
		jobs:          NewJobRegistry(clock),
		clock:         clock,
		limiter:       rate.NewLimiter(rate.Limit(cfg.Server.SubmitRate), cfg.Server.SubmitBurst),
		inflight:      make(chan struct{}, cfg.Server.MaxInFlight),
		sentryEnabled: initSentry(cfg.Server.SentryDSN),
		baseCtx:       baseCtx,
		cancelJobs:    cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/options", s.handleOptions)
		r.Post("/tryon", s.handleTryOn)
		r.Get("/jobs/{id}", s.handleJob)
		r.Get("/jobs/{id}/ws", s.handleJobStream)
	})
	return r
}

// Jobs exposes the registry backing the API.
func (s *Server) Jobs() *JobRegistry {
	return s.jobs
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// wrap to capture the status code, the wrapper keeps http.Hijacker for websockets
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// sweepJobs drops expired jobs until ctx is done.
func (s *Server) sweepJobs(ctx context.Context) {
	interval := s.cfg.Server.JobTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			if n := s.jobs.Sweep(s.cfg.Server.JobTTL); n > 0 {
				slog.Debug("Expired finished jobs", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) Run() error {
	// Create a channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go s.sweepJobs(s.baseCtx)

	// Start the server
	go func() {
		slog.Info("Starting server", "address", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	// Create channel for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt or error
	select {
	case err := <-serverErrors:
		s.cancelJobs()
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info("Starting shutdown", "signal", sig)

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := s.server.Shutdown(ctx)
		s.cancelJobs()
		flushSentry(s.sentryEnabled)
		if err != nil {
			s.server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
