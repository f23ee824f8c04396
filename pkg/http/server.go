package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/tzrikka/slashroute/pkg/command"
	"github.com/tzrikka/slashroute/pkg/deferred"
	"github.com/tzrikka/slashroute/pkg/metrics"
	"github.com/tzrikka/slashroute/pkg/session"
	"github.com/tzrikka/slashroute/pkg/slack"
	"github.com/tzrikka/slashroute/pkg/trigger"
)

const (
	timeout         = 3 * time.Second
	shutdownTimeout = 10 * time.Second

	healthBody = "OK"
)

// Presenter delivers rendered views to Slack.
type Presenter interface {
	Present(ctx context.Context, t trigger.Trigger, v command.View, body, sessionID string) error
}

// Installer completes OAuth v2 app installations.
type Installer interface {
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*slack.Installation, error)
}

// Installations persists the results of successful app installations.
type Installations interface {
	Save(ctx context.Context, in *slack.Installation) error
}

// Config contains the collaborators and settings of the HTTP server.
// Registry, Sessions, and Scheduler are required, the rest are optional.
type Config struct {
	Registry  *command.Registry
	Sessions  *session.Manager
	Scheduler *deferred.Scheduler
	Presenter Presenter
	Metrics   *metrics.Metrics

	SigningSecret     string
	VerificationToken string

	Installer     Installer
	Installations Installations
	ClientID      string
	ClientSecret  string
	Scopes        string
	RedirectURL   string
}

// Server handles Slack webhooks: slash commands, interactive
// events, and OAuth app installations.
type Server struct {
	cfg Config
}

// NewHandler creates the HTTP router of the server.
func NewHandler(cfg Config) http.Handler {
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.normalizeBody, s.verifySlack)
		r.Post("/slash", s.slashHandler)
		r.Post("/action", s.actionHandler)
	})

	r.Get("/install", s.installHandler)
	r.Get("/authorize", s.authorizeHandler)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	return r
}

type httpServer struct {
	httpPort  int
	handler   http.Handler
	scheduler *deferred.Scheduler
}

// run starts an HTTP server to expose webhooks. This is blocking, to keep the
// server running, until the context is canceled. Then it waits for in-flight
// requests and post-response tasks to finish.
func (s *httpServer) run(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.httpPort)))
	if err != nil {
		log.Err(err).Send()
		return err
	}

	log.Info().Msgf("HTTP server listening on port %d", s.httpPort)
	return s.serve(ctx, ln)
}

func (s *httpServer) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Serve returns as soon as Shutdown starts, but handlers may still
	// submit post-response tasks until Shutdown returns.
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Err(err).Msg("HTTP server shutdown error")
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Err(err).Send()
		return err
	}

	<-done
	s.scheduler.Wait()
	log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(healthBody))
}

// reject aborts a request before dispatch.
func (s *Server) reject(w http.ResponseWriter, status int, reason string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.Rejections.WithLabelValues(reason).Inc()
	}
	w.WriteHeader(status)
}
