package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metalagman/clawpm/internal/task"
)

func taskFilters(r *http.Request) task.Filters {
	q := r.URL.Query()
	return task.Filters{
		Domain:    q.Get("domain"),
		Milestone: q.Get("milestone"),
		Status:    q.Get("status"),
		Owner:     q.Get("owner"),
		Priority:  q.Get("priority"),
		Label:     q.Get("label"),
	}
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var p task.CreateParams
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.tasks.Create(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.List(r.Context(), taskFilters(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var p task.UpdateParams
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.tasks.Update(r.Context(), chi.URLParam(r, "taskID"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleReparent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ParentTaskID string `json:"parent_task_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.tasks.Reparent(r.Context(), chi.URLParam(r, "taskID"), body.ParentTaskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	children, err := s.tasks.GetChildren(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if children == nil {
		children = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	roots, err := s.tasks.GetTree(r.Context(), taskFilters(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if roots == nil {
		roots = []*task.TreeNode{}
	}
	writeJSON(w, http.StatusOK, roots)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Progress int    `json:"progress"`
		Summary  string `json:"summary"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.tasks.UpdateProgress(r.Context(), chi.URLParam(r, "taskID"), body.Progress, body.Summary)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Summary string `json:"summary"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.tasks.Complete(r.Context(), chi.URLParam(r, "taskID"), body.Summary)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleBlocker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Blocker string `json:"blocker"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.tasks.ReportBlocker(r.Context(), chi.URLParam(r, "taskID"), body.Blocker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.tasks.AddNote(r.Context(), chi.URLParam(r, "taskID"), body.Content, body.Author)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.tasks.Notes(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []*task.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.tasks.History(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []*task.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleNextTask(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := s.tasks.RecommendNext(r.Context(), q.Get("owner"), q.Get("domain"))
	if err != nil {
		writeError(w, err)
		return
	}
	if t == nil {
		writeJSON(w, http.StatusOK, map[string]any{"task": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}
