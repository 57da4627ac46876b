package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/orgdesk/orgdesk/internal/handler"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/server/middleware"
	"github.com/orgdesk/orgdesk/internal/service"
	"github.com/orgdesk/orgdesk/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int // requests per minute per IP; 0 disables
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimit:       300,
	}
}

// Services bundles the domain services the router dispatches to.
type Services struct {
	Auth       *service.AuthService
	Audit      *service.AuditLogger
	Tasks      *service.TaskService
	Meetings   *service.MeetingService
	Checklists *service.ChecklistService
	Reports    *service.ReportService
}

// Server is the top-level HTTP server for orgdesk. It owns the Chi router,
// the store, the access resolver, and the domain services.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	resolver   *rbac.Resolver
	matrix     *rbac.Matrix
	svcs       Services
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, resolver *rbac.Resolver, matrix *rbac.Matrix, svcs Services, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		resolver: resolver,
		matrix:   matrix,
		svcs:     svcs,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	sysHandler := handler.NewSystemHandler(s.store, s.svcs.Auth, s.matrix, s.svcs.Audit)
	taskHandler := handler.NewTaskHandler(s.svcs.Tasks)
	meetingHandler := handler.NewMeetingHandler(s.svcs.Meetings)
	checklistHandler := handler.NewChecklistHandler(s.svcs.Checklists)
	reportHandler := handler.NewReportHandler(s.svcs.Reports)

	authed := middleware.Authenticate(s.svcs.Auth, s.resolver)

	r.Route("/api/v1", func(r chi.Router) {

		// Session: login is unauthenticated and throttled harder.
		r.Group(func(r chi.Router) {
			r.Use(middleware.LoginRateLimit())
			r.Post("/session", sysHandler.Login)
		})
		r.With(authed).Get("/session", sysHandler.Me)

		// System administration. Access contexts are resolved fresh per
		// request; every endpoint additionally requires the matching
		// catalog permission.
		r.Route("/system", func(r chi.Router) {
			r.Use(authed)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission("roles", "read"))
				r.Get("/role", sysHandler.ListRoles)
				r.Get("/role/{roleID}", sysHandler.GetRole)
				r.Get("/permission", sysHandler.ListPermissions)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission("roles", "update"))
				r.Post("/role", sysHandler.CreateRole)
				r.Put("/role/{roleID}", sysHandler.UpdateRole)
				r.Put("/role/{roleID}/permission", sysHandler.SetRolePermissions)
				r.Post("/permission", sysHandler.CreatePermission)
			})
			r.With(middleware.RequirePermission("roles", "delete")).
				Delete("/role/{roleID}", sysHandler.DeleteRole)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission("users", "read"))
				r.Get("/user", sysHandler.ListUsers)
				r.Get("/user/{userID}", sysHandler.GetUser)
				r.Get("/user/{userID}/override", sysHandler.ListOverrides)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission("users", "update"))
				r.Post("/user", sysHandler.CreateUser)
				r.Put("/user/{userID}/role", sysHandler.SetUserRoles)
				r.Put("/user/{userID}/override", sysHandler.SetOverride)
				r.Delete("/user/{userID}/override/{resource}", sysHandler.DeleteOverride)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission("roles", "export"))
				r.Get("/matrix", sysHandler.ExportMatrix)
				r.Get("/matrix/simulate/user/{userID}", sysHandler.SimulateUser)
				r.Get("/matrix/simulate/role/{roleID}", sysHandler.SimulateRole)
			})
			r.With(middleware.RequirePermission("roles", "update")).
				Post("/matrix", sysHandler.ImportMatrix)

			r.With(middleware.RequirePermission("audit", "read")).
				Get("/audit", sysHandler.ListAuditEvents)
		})

		// Workflow resources. Per-action permission checks and scope
		// filtering happen inside the services.
		r.Group(func(r chi.Router) {
			r.Use(authed)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/{taskID}", taskHandler.Get)
				r.Put("/{taskID}", taskHandler.Update)
				r.Delete("/{taskID}", taskHandler.Delete)
				r.Post("/{taskID}/complete", taskHandler.Complete)
				r.Put("/{taskID}/responsibles", taskHandler.SetResponsibles)
				r.Get("/{taskID}/comments", taskHandler.ListComments)
				r.Post("/{taskID}/comments", taskHandler.CreateComment)
			})

			r.Route("/meetings", func(r chi.Router) {
				r.Get("/", meetingHandler.List)
				r.Post("/", meetingHandler.Create)
				r.Get("/{meetingID}", meetingHandler.Get)
				r.Put("/{meetingID}", meetingHandler.Update)
				r.Delete("/{meetingID}", meetingHandler.Delete)
			})

			r.Route("/checklists", func(r chi.Router) {
				r.Get("/", checklistHandler.List)
				r.Post("/", checklistHandler.Create)
				r.Get("/{checklistID}", checklistHandler.Get)
				r.Put("/{checklistID}", checklistHandler.Update)
				r.Delete("/{checklistID}", checklistHandler.Delete)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", reportHandler.List)
				r.Post("/", reportHandler.Create)
				r.Get("/{reportID}", reportHandler.Get)
				r.Put("/{reportID}", reportHandler.Update)
				r.Delete("/{reportID}", reportHandler.Delete)
			})
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database is
// reachable, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn("store close failed", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
