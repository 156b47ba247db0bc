package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metalagman/clawpm/internal/backlog"
)

func (s *Server) handleCreateBacklog(w http.ResponseWriter, r *http.Request) {
	var p backlog.CreateParams
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.backlog.Create(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListBacklog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.backlog.List(r.Context(), backlog.Filters{
		Domain:   q.Get("domain"),
		Priority: q.Get("priority"),
		Status:   q.Get("status"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []*backlog.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUpdateBacklog(w http.ResponseWriter, r *http.Request) {
	var p backlog.UpdateParams
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.backlog.Update(r.Context(), chi.URLParam(r, "backlogID"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleScheduleBacklog(w http.ResponseWriter, r *http.Request) {
	var p backlog.ScheduleParams
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.backlog.Schedule(r.Context(), chi.URLParam(r, "backlogID"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
