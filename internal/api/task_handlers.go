package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/aggregator"
	"github.com/boardkit/boardpulse/internal/board"
	"github.com/boardkit/boardpulse/internal/indicator"
)

type createTaskRequest struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Subtasks []subtaskDTO `json:"subtasks"`
}

type subtaskDTO struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type progressDTO struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Label     string `json:"label"`
}

type taskDTO struct {
	ID       string       `json:"id"`
	Category string       `json:"category"`
	Title    string       `json:"title"`
	Subtasks []subtaskDTO `json:"subtasks"`
	Progress progressDTO  `json:"progress"`
}

type viewDTO struct {
	TaskID     string    `json:"task_id"`
	Category   string    `json:"category"`
	Task       taskDTO   `json:"task"`
	RenderedAt time.Time `json:"rendered_at"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.ID == "" {
		id, err := s.idGen.NewID()
		if err != nil {
			s.logger.Error("generate task id failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to generate task id")
			return
		}
		req.ID = id
	}
	task := board.Task{
		ID:       req.ID,
		Category: category,
		Title:    req.Title,
		Subtasks: toSubtasks(req.Subtasks),
	}
	if err := s.repo.Put(r.Context(), task); err != nil {
		s.logger.Error("create task failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store task")
		return
	}
	// Register the indicator before publishing so the snapshot event finds
	// a handle to render into.
	s.indicators.Register(task.ID, indicator.NewMemoryHandle())
	s.agg.Publish(r.Context(), task)
	writeJSON(w, http.StatusCreated, map[string]any{"task": toTaskDTO(task)})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	tasks, err := s.repo.List(r.Context(), category)
	if err != nil {
		s.logger.Error("list tasks failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	out := make([]taskDTO, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskDTO(task))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": toTaskDTO(task)})
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	if err := s.repo.Delete(r.Context(), task.Category, task.ID); err != nil {
		if errors.Is(err, board.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("delete task failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	s.agg.Forget(r.Context(), task)
	s.indicators.Deregister(task.ID)
	writeJSON(w, http.StatusOK, map[string]string{"task_id": task.ID, "status": "deleted"})
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	payload := map[string]any{"progress": toProgressDTO(board.ProgressOf(task))}
	if handle, found := s.indicators.Lookup(task.ID); found {
		if mem, isMem := handle.(*indicator.MemoryHandle); isMem {
			payload["indicator"] = mem.State()
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

// replaceSubtasks accepts the full subtask array, the same shape the remote
// document holds. The replacement is last-write-wins.
func (s *Server) replaceSubtasks(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	var incoming []subtaskDTO
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	task.Subtasks = toSubtasks(incoming)
	if err := s.repo.Put(r.Context(), task); err != nil {
		s.logger.Error("replace subtasks failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store task")
		return
	}
	prog := s.agg.Publish(r.Context(), task)
	writeJSON(w, http.StatusOK, map[string]any{
		"task":     toTaskDTO(task),
		"progress": toProgressDTO(prog),
	})
}

func (s *Server) toggleSubtask(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	taskID := chi.URLParam(r, "task_id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subtask index")
		return
	}
	prog, err := s.agg.Toggle(r.Context(), category, taskID, index)
	if err != nil {
		switch {
		case errors.Is(err, board.ErrNotFound):
			writeError(w, http.StatusNotFound, "task not found")
		case errors.Is(err, aggregator.ErrIndexOutOfRange):
			writeError(w, http.StatusUnprocessableEntity, "subtask index out of range")
		default:
			s.logger.Error("toggle failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to toggle subtask")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":  taskID,
		"progress": toProgressDTO(prog),
	})
}

func (s *Server) openView(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	s.tracker.Open(taskID)
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID, "status": "open"})
}

func (s *Server) closeView(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	s.tracker.Close(taskID)
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID, "status": "closed"})
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	render, ok := s.tracker.LastRender(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "no rendered view")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": viewDTO{
		TaskID:     taskID,
		Category:   render.Category,
		Task:       toTaskDTO(render.Task),
		RenderedAt: render.RenderedAt,
	}})
}

func (s *Server) loadTask(w http.ResponseWriter, r *http.Request) (board.Task, bool) {
	category := chi.URLParam(r, "category")
	taskID := chi.URLParam(r, "task_id")
	task, err := s.repo.Get(r.Context(), category, taskID)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return board.Task{}, false
		}
		s.logger.Error("load task failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return board.Task{}, false
	}
	return task, true
}

func toSubtasks(in []subtaskDTO) []board.Subtask {
	if in == nil {
		return nil
	}
	out := make([]board.Subtask, 0, len(in))
	for _, st := range in {
		out = append(out, board.Subtask{Title: st.Title, Completed: st.Completed})
	}
	return out
}

func toTaskDTO(task board.Task) taskDTO {
	subtasks := make([]subtaskDTO, 0, len(task.Subtasks))
	for _, st := range task.Subtasks {
		subtasks = append(subtasks, subtaskDTO{Title: st.Title, Completed: st.Completed})
	}
	return taskDTO{
		ID:       task.ID,
		Category: task.Category,
		Title:    task.Title,
		Subtasks: subtasks,
		Progress: toProgressDTO(board.ProgressOf(task)),
	}
}

func toProgressDTO(p board.Progress) progressDTO {
	return progressDTO{
		Completed: p.Completed,
		Total:     p.Total,
		Percent:   p.Percent,
		Label:     p.Label(),
	}
}
