package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/users"
)

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string   `json:"token"`
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	u, err := s.userStore.Create(r.Context(), req.Username, req.Password, req.Email, req.FullName)
	if err != nil {
		if errors.Is(err, users.ErrUsernameAlreadyUsed) {
			writeJSONError(w, http.StatusConflict, "username_taken", "username already exists")
			return
		}
		s.logger.Error("signup failed", zap.Error(err))
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	s.logger.Info("user registered", zap.String("username", u.Username), zap.Int64("id", u.ID))
	s.issueToken(w, u)
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	u, err := s.userStore.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
			return
		}
		s.logger.Error("signin failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "authentication unavailable")
		return
	}

	s.issueToken(w, u)
}

func (s *Server) issueToken(w http.ResponseWriter, u *users.User) {
	token, err := s.tokens.Issue(&auth.Identity{ID: u.ID, Username: u.Username, Roles: u.Roles})
	if err != nil {
		s.logger.Error("token issue failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token:    token,
		ID:       u.ID,
		Username: u.Username,
		Roles:    u.Roles,
	})
}
