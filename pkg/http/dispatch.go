package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	slackgo "github.com/slack-go/slack"

	"github.com/tzrikka/slashroute/pkg/command"
	"github.com/tzrikka/slashroute/pkg/session"
	"github.com/tzrikka/slashroute/pkg/trigger"
)

// slashHandler handles fresh slash command invocations.
func (s *Server) slashHandler(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	sc, err := slackgo.SlashCommandParse(r)
	if err != nil {
		l.Warn().Err(err).Msg("bad request: invalid slash command form")
		s.reject(w, http.StatusBadRequest, "malformed_payload")
		return
	}

	t, err := trigger.FromSlash(sc)
	if err != nil {
		l.Warn().Err(err).Msg("bad request: invalid slash command")
		s.reject(w, http.StatusBadRequest, "malformed_payload")
		return
	}

	s.dispatch(w, r, t)
}

// actionHandler handles interactive message actions and dialog submissions.
func (s *Server) actionHandler(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	p, err := trigger.ParsePayload(r.PostForm.Get("payload"))
	if err != nil {
		l.Warn().Err(err).Msg("bad request: invalid interactive payload")
		s.reject(w, http.StatusBadRequest, "malformed_payload")
		return
	}

	t, err := trigger.FromAction(p)
	if err != nil {
		l.Warn().Err(err).Str("callback_id", p.CallbackID).Msg("bad request: invalid interactive event")
		s.reject(w, http.StatusBadRequest, "malformed_payload")
		return
	}

	s.dispatch(w, r, t)
}

// dispatch resolves the trigger's target, loads its session, and invokes
// the target's handler. Failures up to this point abort the request without
// side effects. Then the request is acknowledged, and the session is enriched,
// persisted, and presented only after the response was written.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, t trigger.Trigger) {
	start := time.Now()
	ctx := r.Context()
	l := zerolog.Ctx(ctx).With().Str("team", t.Team).Str("slash", t.Slash).
		Str("user", t.User).Str("kind", string(t.Kind)).Logger()

	target, err := s.cfg.Registry.Resolve(t)
	if err != nil {
		l.Warn().Err(err).Msg("not found: unknown handler target")
		s.reject(w, http.StatusNotFound, "unknown_target")
		return
	}

	sess, err := s.cfg.Sessions.LoadOrCreate(ctx, t.Team, t.Slash, t.Originator, t.SessionID, target.Command.InitState)
	if err != nil {
		if errors.Is(err, session.ErrMalformedID) || errors.Is(err, session.ErrDelimiter) {
			l.Warn().Err(err).Msg("bad request: invalid session address")
			s.reject(w, http.StatusBadRequest, "malformed_payload")
			return
		}
		l.Error().Err(err).Msg("failed to load session")
		s.reject(w, http.StatusInternalServerError, "session_store")
		return
	}

	l = l.With().Str("session_id", sess.ID).Str("target", target.Kind.String()).
		Str("target_name", target.Name).Logger()
	ctx = l.WithContext(ctx)

	if err := target.Invoke(ctx, t, sess); err != nil {
		l.Warn().Err(err).Msg("command handler error")
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.HandlerErrors.WithLabelValues(t.Slash, target.Kind.String()).Inc()
		}
	}

	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.Triggers.WithLabelValues(string(t.Kind), t.Slash).Inc()
		s.cfg.Metrics.DispatchDuration.WithLabelValues(string(t.Kind)).Observe(time.Since(start).Seconds())
	}

	s.cfg.Scheduler.Submit(ctx, "respond", func(ctx context.Context) error {
		return s.respond(ctx, t, sess)
	})
}

// respond enriches the session with the profile of the interacting user,
// persists it, and presents its current view, if there is one. A failure
// in one step doesn't prevent the next ones.
func (s *Server) respond(ctx context.Context, t trigger.Trigger, sess *session.Session) error {
	var errs []error

	if err := s.cfg.Sessions.SetUser(ctx, sess, t.User); err != nil {
		errs = append(errs, err)
	}

	if err := s.cfg.Sessions.Persist(ctx, sess); err != nil {
		errs = append(errs, err)
	}

	if sess.CurrentView != "" && s.cfg.Presenter != nil {
		v, body, err := s.cfg.Registry.Render(sess.CurrentView, command.NewViewData(sess))
		if err == nil {
			err = s.cfg.Presenter.Present(ctx, t, v, body, sess.ID)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
