package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/events"
)

// topicEventsDeleted receives the id of every deleted event.
const topicEventsDeleted = "/topic/events/deleted"

type createEventRequest struct {
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location,omitempty"`
	Category        string    `json:"category,omitempty"`
	MaxParticipants int       `json:"max_participants,omitempty"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := events.ListFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	list, err := s.eventStore.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not list events")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMyEvents(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFromContext(r.Context())
	list, err := s.eventStore.ListByMember(r.Context(), ident.Username)
	if err != nil {
		s.logger.Error("list my events failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not list events")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}

	e, err := s.eventStore.Get(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}
		s.logger.Error("get event failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not load event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	ident := auth.IdentityFromContext(r.Context())
	e, err := s.eventStore.Create(r.Context(), &events.Event{
		Name:            req.Name,
		Description:     req.Description,
		Date:            req.Date,
		Location:        req.Location,
		Category:        req.Category,
		MaxParticipants: req.MaxParticipants,
		CreatedBy:       ident.ID,
	}, ident.Username)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	s.logger.Info("event created", zap.Int64("event_id", e.ID), zap.String("creator", ident.Username))
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}

	ident := auth.IdentityFromContext(r.Context())
	if !s.evaluator.Check(r.Context(), ident, auth.ResourceEvent, eventID, auth.CapabilityAdmin) {
		writeJSONError(w, http.StatusForbidden, "forbidden", "only the event creator may delete it")
		return
	}

	if err := s.eventStore.Delete(r.Context(), eventID); err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}
		s.logger.Error("delete event failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not delete event")
		return
	}

	// Tasks and chat go with the event.
	if err := s.taskStore.DeleteByEvent(r.Context(), eventID); err != nil {
		s.logger.Error("purge event tasks failed", zap.Int64("event_id", eventID), zap.Error(err))
	}
	if err := s.chatStore.DeleteByEvent(r.Context(), eventID); err != nil {
		s.logger.Error("purge event chat failed", zap.Int64("event_id", eventID), zap.Error(err))
	}

	s.hub.Publish(topicEventsDeleted, map[string]int64{"event_id": eventID})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJoinEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}

	ident := auth.IdentityFromContext(r.Context())
	err := s.eventStore.Join(r.Context(), eventID, ident.ID, ident.Username)
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "event not found")
	case errors.Is(err, events.ErrEventExpired):
		writeJSONError(w, http.StatusConflict, "event_expired", "event has already taken place")
	case errors.Is(err, events.ErrEventFull):
		writeJSONError(w, http.StatusConflict, "event_full", "event is full")
	case errors.Is(err, events.ErrAlreadyMember):
		writeJSONError(w, http.StatusConflict, "already_member", "already a member of this event")
	case err != nil:
		s.logger.Error("join event failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not join event")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
	}
}

func (s *Server) handleIsMember(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		if ident := auth.IdentityFromContext(r.Context()); ident != nil {
			username = ident.Username
		}
	}
	if username == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "username required")
		return
	}

	member, err := s.eventStore.IsMember(r.Context(), eventID, username)
	if err != nil {
		s.logger.Error("membership check failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not check membership")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_member": member})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}

	members, err := s.eventStore.MembersOf(r.Context(), eventID)
	if err != nil {
		s.logger.Error("list members failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not list members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}
	userID, ok := pathID(r, "userId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	ident := auth.IdentityFromContext(r.Context())
	if !s.evaluator.Check(r.Context(), ident, auth.ResourceEvent, eventID, auth.CapabilityAdmin) {
		writeJSONError(w, http.StatusForbidden, "forbidden", "only the event creator may remove members")
		return
	}

	if err := s.eventStore.RemoveMember(r.Context(), eventID, userID); err != nil {
		if errors.Is(err, events.ErrNotMember) {
			writeJSONError(w, http.StatusNotFound, "not_found", "not a member of this event")
			return
		}
		s.logger.Error("remove member failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
