package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/saraatrapero/puerta-garaje/internal/auth"
	"github.com/saraatrapero/puerta-garaje/internal/garage/service"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
)

type Dependencies struct {
	Logger   *slog.Logger
	Addr     string
	Gate     *service.GateService
	Roster   *service.Roster
	Logs     store.AccessLogStore
	Power    *service.PowerThermalManager
	Activity *service.Activity
	Digest   *service.DigestJob
	Admin    auth.Admin

	// Ready reports whether dependencies (database) are usable. Nil means
	// always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	gate       *service.GateService
	roster     *service.Roster
	logs       store.AccessLogStore
	power      *service.PowerThermalManager
	activity   *service.Activity
	digest     *service.DigestJob
	admin      auth.Admin
	ready      func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:   d.Logger,
		gate:     d.Gate,
		roster:   d.Roster,
		logs:     d.Logs,
		power:    d.Power,
		activity: d.Activity,
		digest:   d.Digest,
		admin:    d.Admin,
		ready:    d.Ready,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/door", s.handleDoorStatus)
		r.With(s.requireAdmin).Post("/door/open", s.handleDoorOpen)
		r.With(s.requireAdmin).Post("/door/close", s.handleDoorClose)
		r.With(s.requireAdmin).Post("/door/stop", s.handleDoorStop)

		r.Post("/lpr", s.handleLPR)
		r.With(s.requireAdmin).Post("/lpr/confirm", s.handleLPRConfirm)

		r.Route("/users", func(r chi.Router) {
			r.With(s.requireAdmin).Get("/", s.handleListUsers)
			r.With(s.requireAdmin).Post("/", s.handleCreateUser)
			r.With(s.requireAdmin).Put("/{id}", s.handleReplaceUser)
			r.With(s.requireAdmin).Delete("/{id}", s.handleDeleteUser)
		})

		r.Get("/logs", s.handleListLogs)
		r.Get("/logs/summary", s.handleLogSummary)

		r.Get("/power", s.handlePower)
		r.With(s.requireAdmin).Post("/power/charge", s.handleCharge)
		r.Post("/intercom", s.handleIntercom)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
