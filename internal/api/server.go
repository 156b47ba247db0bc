// Package api exposes the task tracker over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/clawpm/internal/backlog"
	"github.com/metalagman/clawpm/internal/catalog"
	"github.com/metalagman/clawpm/internal/reqlink"
	"github.com/metalagman/clawpm/internal/task"
)

// Server wires the domain services into HTTP handlers.
type Server struct {
	tasks   *task.Service
	links   *reqlink.Service
	backlog *backlog.Service
	catalog *catalog.Store

	server *http.Server
}

// NewServer creates an HTTP server over the given services.
func NewServer(tasks *task.Service, links *reqlink.Service, bl *backlog.Service, cat *catalog.Store) *Server {
	return &Server{tasks: tasks, links: links, backlog: bl, catalog: cat}
}

// Routes builds the full router, including CORS and request logging.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleCreateTask)
			r.Get("/", s.handleListTasks)
			r.Get("/tree", s.handleGetTree)
			r.Get("/next", s.handleNextTask)
			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Patch("/", s.handleUpdateTask)
				r.Delete("/", s.handleDeleteTask)
				r.Patch("/reparent", s.handleReparent)
				r.Get("/children", s.handleChildren)
				r.Post("/progress", s.handleProgress)
				r.Post("/complete", s.handleComplete)
				r.Post("/blocker", s.handleBlocker)
				r.Post("/notes", s.handleAddNote)
				r.Get("/notes", s.handleNotes)
				r.Get("/history", s.handleHistory)
				r.Get("/links", s.handleTaskLinks)
			})
		})
		r.Route("/req-links", func(r chi.Router) {
			r.Post("/", s.handleCreateLink)
			r.Get("/", s.handleListLinks)
			r.Delete("/{linkID}", s.handleDeleteLink)
		})
		r.Route("/backlog", func(r chi.Router) {
			r.Post("/", s.handleCreateBacklog)
			r.Get("/", s.handleListBacklog)
			r.Patch("/{backlogID}", s.handleUpdateBacklog)
			r.Post("/{backlogID}/schedule", s.handleScheduleBacklog)
		})
		r.Route("/domains", func(r chi.Router) {
			r.Post("/", s.handleCreateDomain)
			r.Get("/", s.handleListDomains)
		})
		r.Route("/milestones", func(r chi.Router) {
			r.Post("/", s.handleCreateMilestone)
			r.Get("/", s.handleListMilestones)
			r.Patch("/{milestoneID}", s.handleUpdateMilestone)
		})
		r.Route("/goals", func(r chi.Router) {
			r.Post("/", s.handleCreateGoal)
			r.Get("/", s.handleListGoals)
			r.Post("/{goalID}/link-task", s.handleLinkGoalTask)
		})
		r.Route("/members", func(r chi.Router) {
			r.Post("/", s.handleCreateMember)
			r.Get("/", s.handleListMembers)
			r.Get("/{identifier}", s.handleGetMember)
			r.Patch("/{identifier}", s.handleUpdateMember)
			r.Delete("/{identifier}", s.handleDeleteMember)
		})
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch,
			http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

// ListenAndServe starts the server on addr and blocks until it stops.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	log.Info().Str("addr", addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
