package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/metalagman/clawpm/internal/catalog"
	"github.com/metalagman/clawpm/internal/model"
)

func (s *Server) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string   `json:"name"`
		TaskPrefix string   `json:"task_prefix"`
		Keywords   []string `json:"keywords"`
		Color      string   `json:"color"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	d, err := s.catalog.CreateDomain(r.Context(), body.Name, body.TaskPrefix, body.Keywords, body.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.catalog.ListDomains(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if domains == nil {
		domains = []*catalog.Domain{}
	}
	writeJSON(w, http.StatusOK, domains)
}

func (s *Server) handleCreateMilestone(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		TargetDate  string `json:"target_date"`
		Description string `json:"description"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.catalog.CreateMilestone(r.Context(), body.Name, body.TargetDate, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	milestones, err := s.catalog.ListMilestones(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if milestones == nil {
		milestones = []*catalog.MilestoneReport{}
	}
	writeJSON(w, http.StatusOK, milestones)
}

func (s *Server) handleUpdateMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "milestoneID"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("milestone id must be numeric: %w", model.ErrValidation))
		return
	}
	var body struct {
		Name        string `json:"name"`
		TargetDate  string `json:"target_date"`
		Status      string `json:"status"`
		Description string `json:"description"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.catalog.UpdateMilestone(r.Context(), id, body.Name, body.TargetDate, body.Status, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string                   `json:"title"`
		Description string                   `json:"description"`
		TargetDate  string                   `json:"target_date"`
		SetBy       string                   `json:"set_by"`
		Objectives  []catalog.ObjectiveInput `json:"objectives"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	g, err := s.catalog.CreateGoal(r.Context(), body.Title, body.Description, body.TargetDate, body.SetBy, body.Objectives)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.catalog.ListGoals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if goals == nil {
		goals = []*catalog.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleLinkGoalTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ObjectiveID int64  `json:"objective_id"`
		TaskID      string `json:"task_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := s.catalog.LinkObjectiveTask(r.Context(), body.ObjectiveID, body.TaskID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Identifier  string `json:"identifier"`
		Type        string `json:"type"`
		Color       string `json:"color"`
		Description string `json:"description"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.catalog.CreateMember(r.Context(), body.Name, body.Identifier, body.Type, body.Color, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.catalog.ListMembers(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	if members == nil {
		members = []*catalog.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.catalog.GetMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Color       string `json:"color"`
		Description string `json:"description"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.catalog.UpdateMember(r.Context(), chi.URLParam(r, "identifier"), body.Name, body.Type, body.Color, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteMember(r.Context(), chi.URLParam(r, "identifier")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
