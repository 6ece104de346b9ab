package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/metrics"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Accounts
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignin)

	// Events
	mux.HandleFunc("GET /api/v1/events", s.handleListEvents)
	mux.HandleFunc("GET /api/v1/events/my-events", s.requireAuth(s.handleMyEvents))
	mux.HandleFunc("GET /api/v1/events/{eventId}", s.handleGetEvent)
	mux.HandleFunc("POST /api/v1/events", s.requireAuth(s.handleCreateEvent))
	mux.HandleFunc("DELETE /api/v1/events/{eventId}", s.requireAuth(s.handleDeleteEvent))
	mux.HandleFunc("POST /api/v1/events/{eventId}/join", s.requireAuth(s.handleJoinEvent))
	mux.HandleFunc("GET /api/v1/events/{eventId}/is-member", s.handleIsMember)
	mux.HandleFunc("GET /api/v1/events/{eventId}/members", s.handleListMembers)
	mux.HandleFunc("DELETE /api/v1/events/{eventId}/members/{userId}", s.requireAuth(s.handleRemoveMember))

	// Tasks
	mux.HandleFunc("GET /api/v1/tasks/event/{eventId}", s.handleListTasks)
	mux.HandleFunc("POST /api/v1/tasks/event/{eventId}", s.requireAuth(s.handleCreateTask))
	mux.HandleFunc("PUT /api/v1/tasks/{taskId}", s.requireAuth(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/v1/tasks/{taskId}", s.requireAuth(s.handleDeleteTask))

	// Chat
	mux.HandleFunc("GET /api/v1/events/{eventId}/messages", s.handleChatHistory)

	// Realtime
	mux.HandleFunc("GET /ws", s.hub.HandleWS)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

// requireAuth rejects requests that carry no verified identity. The auth
// gate never aborts on its own, so protected handlers opt in here.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAuthenticated(r.Context()) {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next(w, r)
	}
}

// countRequests records per-request metrics around the mux.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.written {
		r.status = status
		r.written = true
	}
	r.ResponseWriter.WriteHeader(status)
}

// Hijack forwards to the underlying writer so the WebSocket upgrade works
// through the metrics wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// pathID parses the named path segment as a numeric id.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
