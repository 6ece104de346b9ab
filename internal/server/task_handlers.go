package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/events"
	"github.com/Sauravv193/event-collab-task-management/internal/tasks"
)

func topicTasks(eventID int64) string {
	return fmt.Sprintf("/topic/tasks/%d", eventID)
}

func topicTasksDeleted(eventID int64) string {
	return fmt.Sprintf("/topic/tasks/deleted/%d", eventID)
}

type taskRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      tasks.Status `json:"status,omitempty"`
	AssignedTo  string       `json:"assigned_to,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}

	ident := auth.IdentityFromContext(r.Context())
	if !s.evaluator.Check(r.Context(), ident, auth.ResourceEvent, eventID, auth.CapabilityMember) {
		writeJSONError(w, http.StatusForbidden, "forbidden", "event members only")
		return
	}

	list, err := s.taskStore.ListByEvent(r.Context(), eventID)
	if err != nil {
		s.logger.Error("list tasks failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not list tasks")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}

	ident := auth.IdentityFromContext(r.Context())
	if !s.evaluator.Check(r.Context(), ident, auth.ResourceEvent, eventID, auth.CapabilityMember) {
		writeJSONError(w, http.StatusForbidden, "forbidden", "event members only")
		return
	}

	e, err := s.eventStore.Get(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}
		s.logger.Error("load event failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not load event")
		return
	}
	if e.Date.Before(time.Now().UTC()) {
		writeJSONError(w, http.StatusConflict, "event_expired", "cannot add tasks to a past event")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	task, err := s.taskStore.Create(r.Context(), &tasks.Task{
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Deadline:    req.Deadline,
	})
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	s.hub.Publish(topicTasks(eventID), task)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, "taskId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid task id")
		return
	}

	// Task permissions delegate to the owning event.
	ident := auth.IdentityFromContext(r.Context())
	if !s.evaluator.Check(r.Context(), ident, auth.ResourceTask, taskID, auth.CapabilityMember) {
		writeJSONError(w, http.StatusForbidden, "forbidden", "event members only")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	updated, err := s.taskStore.Update(r.Context(), &tasks.Task{
		ID:          taskID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Deadline:    req.Deadline,
	})
	if err != nil {
		switch {
		case errors.Is(err, tasks.ErrTaskNotFound):
			writeJSONError(w, http.StatusNotFound, "not_found", "task not found")
		case errors.Is(err, tasks.ErrInvalidStatus):
			writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid task status")
		default:
			writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		}
		return
	}

	s.hub.Publish(topicTasks(updated.EventID), updated)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, "taskId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid task id")
		return
	}

	ident := auth.IdentityFromContext(r.Context())
	if !s.evaluator.Check(r.Context(), ident, auth.ResourceTask, taskID, auth.CapabilityAdmin) {
		writeJSONError(w, http.StatusForbidden, "forbidden", "only the event creator may delete tasks")
		return
	}

	eventID, err := s.taskStore.OwningEvent(r.Context(), taskID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	if err := s.taskStore.Delete(r.Context(), taskID); err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		s.logger.Error("delete task failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not delete task")
		return
	}

	s.hub.Publish(topicTasksDeleted(eventID), map[string]int64{"task_id": taskID})
	w.WriteHeader(http.StatusNoContent)
}
