package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/metalagman/clawpm/internal/model"
	"github.com/metalagman/clawpm/internal/reqlink"
)

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceTaskID string `json:"source_task_id"`
		TargetTaskID string `json:"target_task_id"`
		LinkType     string `json:"link_type"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	l, err := s.links.Create(r.Context(), body.SourceTaskID, body.TargetTaskID, body.LinkType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.links.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	enriched, err := s.links.Enrich(r.Context(), links)
	if err != nil {
		writeError(w, err)
		return
	}
	if enriched == nil {
		enriched = []*reqlink.EnrichedLink{}
	}
	writeJSON(w, http.StatusOK, enriched)
}

func (s *Server) handleTaskLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.links.ListForTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	enriched, err := s.links.Enrich(r.Context(), links)
	if err != nil {
		writeError(w, err)
		return
	}
	if enriched == nil {
		enriched = []*reqlink.EnrichedLink{}
	}
	writeJSON(w, http.StatusOK, enriched)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "linkID"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("link id must be numeric: %w", model.ErrValidation))
		return
	}
	if err := s.links.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
