package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/health"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/mediator"
	"github.com/fleetlab/corectl/pkg/metrics"
	"github.com/fleetlab/corectl/pkg/scheduler"
	"github.com/fleetlab/corectl/pkg/storage"
)

// Server wires the REST+SSE surface from spec §6 to the command mediator,
// the event broker, and the read-side store, and serves the ambient
// health/metrics endpoints alongside it.
type Server struct {
	router   chi.Router
	registry *mediator.Registry
	store    storage.Store
	broker   *events.Broker
	throttle *scheduler.Throttle
	health   *health.Server
	logger   zerolog.Logger
}

// NewServer builds the Server and registers every route. validator gates
// every route under bearerAuth except the ambient health/metrics endpoints,
// which operate without a token since they carry no domain data.
func NewServer(registry *mediator.Registry, store storage.Store, broker *events.Broker, throttle *scheduler.Throttle, validator TokenValidator) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		registry: registry,
		store:    store,
		broker:   broker,
		throttle: throttle,
		health:   health.NewServer(store),
		logger:   log.WithComponent("api"),
	}
	s.routes(validator)
	return s
}

// Handler returns the http.Handler to pass to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(validator TokenValidator) {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.health.Liveness)
	s.router.Get("/readyz", s.health.Readiness)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(bearerAuth(validator))

		r.Get("/events/stream", s.streamEvents)

		r.Route("/workers/region/{region}/workers", func(r chi.Router) {
			r.Post("/", s.createWorker)
			r.Post("/import", s.importWorker)
			r.Post("/bulk-import", s.bulkImportWorkers)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.terminateWorker)
				r.Post("/start", s.startWorker)
				r.Post("/stop", s.stopWorker)
				r.Post("/refresh", s.refreshWorker)
				r.Post("/tags", s.updateWorkerTags)

				r.Get("/status", s.getWorkerStatus)
				r.Get("/labs", s.getWorkerLabs)
				r.Get("/metrics", s.getWorkerMetrics)
				r.Delete("/labs/{labID}", s.deleteLab)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Post("/idle-detection/enable", s.setIdleDetection(true))
					r.Post("/idle-detection/disable", s.setIdleDetection(false))
				})
			})
		})
	})
}

// requestLogger logs one structured line per request, matching the
// teacher's zerolog-chained style instead of chi's default stdlib logger.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", duration).
				Msg("request")

			metrics.APIRequestsTotal.WithLabelValues(r.URL.Path, http.StatusText(ww.Status())).Inc()
			metrics.APIRequestDuration.WithLabelValues(r.URL.Path).Observe(duration.Seconds())
		})
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled, then drains
// in-flight requests for up to gracePeriod before returning.
func (s *Server) Run(ctx context.Context, addr string, gracePeriod time.Duration) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // the SSE stream route is long-lived
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http api listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
