// Package server wires together all subsystems and exposes the HTTP
// server. main() builds a Server, calls Run, done.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/chat"
	"github.com/Sauravv193/event-collab-task-management/internal/config"
	"github.com/Sauravv193/event-collab-task-management/internal/events"
	"github.com/Sauravv193/event-collab-task-management/internal/tasks"
	"github.com/Sauravv193/event-collab-task-management/internal/users"
	"github.com/Sauravv193/event-collab-task-management/internal/ws"
)

// Version info injected at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// idleSessionAge is how long a realtime session may stay silent before
// the background sweep closes it.
const idleSessionAge = 30 * time.Minute

// Server is the assembled backend.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	db     *sql.DB

	userStore  *users.Store
	identities *users.Identities
	eventStore *events.Store
	taskStore  *tasks.Store
	chatStore  *chat.Store

	tokens    *auth.TokenService
	authGate  *auth.Gate
	evaluator *auth.Evaluator
	limiter   *auth.Limiter
	hub       *ws.Hub

	cron       *cron.Cron
	httpServer *http.Server
}

// New builds a fully-wired Server from config and an open database.
func New(cfg config.Config, sqldb *sql.DB, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     sqldb,
	}

	s.userStore = users.NewStore(sqldb)
	s.identities = users.NewIdentities(s.userStore)
	s.eventStore = events.NewStore(sqldb)
	s.taskStore = tasks.NewStore(sqldb)
	s.chatStore = chat.NewStore(sqldb)

	s.tokens = auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL.Std())
	s.authGate = auth.NewGate(s.tokens, s.identities, logger.Named("auth"))
	s.evaluator = auth.NewEvaluator(s.eventStore, s.taskStore, logger.Named("permissions"))
	s.limiter = auth.NewLimiter(cfg.RateLimit.Enabled, cfg.RateLimit.RequestsPerMinute, logger.Named("ratelimit"))

	s.hub = ws.NewHub(ws.NewGate(s.tokens, s.identities, logger.Named("ws")), logger.Named("ws"))
	s.hub.SetSendHandler(s.handleStreamSend)
	if cfg.AllowedOrigins != "" {
		origins := strings.Split(cfg.AllowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		s.hub.SetAllowedOrigins(origins)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := s.limiter.Middleware(s.authGate.Wrap(s.countRequests(mux)))

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.cron = cron.New()

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc("@every 5m", func() {
		if n := s.hub.SweepIdle(idleSessionAge); n > 0 {
			s.logger.Info("swept idle sessions", zap.Int("closed", n))
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	defer s.cron.Stop()

	s.logger.Info("starting server",
		zap.String("addr", s.cfg.ListenAddr),
		zap.String("version", Version),
		zap.Bool("rate_limit", s.cfg.RateLimit.Enabled),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
