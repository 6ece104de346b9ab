package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/metrics"
	"github.com/Sauravv193/event-collab-task-management/internal/telemetry"
	"github.com/Sauravv193/event-collab-task-management/internal/ws"
)

func topicChat(eventID int64) string {
	return fmt.Sprintf("/topic/chat/%d", eventID)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eventId")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}

	history, err := s.chatStore.History(r.Context(), eventID)
	if err != nil {
		s.logger.Error("chat history failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not load chat history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type chatSendBody struct {
	Content string `json:"content"`
}

// handleStreamSend processes admitted SEND frames. The only application
// destination is /app/chat/{eventId}; the membership check runs again here
// because frame admission only proves the session is authenticated, not
// that the sender belongs to this event.
func (s *Server) handleStreamSend(ctx context.Context, sess *ws.Session, f ws.Frame) {
	eventID, ok := chatDestination(f.Destination)
	if !ok {
		s.logger.Warn("send to unknown destination",
			zap.String("session", sess.ID),
			zap.String("destination", f.Destination),
		)
		return
	}

	ident := sess.Identity()
	ctx, span := telemetry.StartChatSpan(ctx, eventID, ident.Username)
	defer span.End()

	allowed := s.evaluator.Check(ctx, ident, auth.ResourceEvent, eventID, auth.CapabilityMember)
	telemetry.RecordDecision(span, allowed)
	if !allowed {
		s.logger.Warn("chat send denied: not a member",
			zap.String("session", sess.ID),
			zap.Int64("event_id", eventID),
			zap.String("sender", ident.Username),
		)
		return
	}

	var body chatSendBody
	if err := json.Unmarshal(f.Body, &body); err != nil {
		s.logger.Warn("malformed chat body", zap.String("session", sess.ID), zap.Error(err))
		return
	}

	msg, err := s.chatStore.Save(ctx, eventID, ident.Username, body.Content)
	if err != nil {
		s.logger.Error("chat save failed", zap.Int64("event_id", eventID), zap.Error(err))
		return
	}

	metrics.ChatMessagesTotal.Inc()
	s.hub.Publish(topicChat(eventID), msg)
}

// chatDestination extracts the event id from an /app/chat/{eventId}
// destination.
func chatDestination(d string) (int64, bool) {
	rest, ok := strings.CutPrefix(d, "/app/chat/")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
