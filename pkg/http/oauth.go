package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tzrikka/slashroute/pkg/slack"
)

// installHandler redirects to Slack's OAuth v2 authorization page.
func (s *Server) installHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ClientID == "" {
		zerolog.Ctx(r.Context()).Warn().Msg("not found: Slack OAuth client ID is not configured")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	http.Redirect(w, r, slack.InstallURL(s.cfg.ClientID, s.cfg.Scopes), http.StatusFound)
}

// authorizeHandler completes app installations, i.e. handles OAuth v2 redirects.
func (s *Server) authorizeHandler(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	if s.cfg.Installer == nil || s.cfg.Installations == nil || s.cfg.ClientID == "" {
		l.Warn().Msg("not found: Slack OAuth is not configured")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		l.Warn().Str("error", e).Msg("unauthorized: installation was not approved")
		http.Error(w, "Installation was not approved", http.StatusUnauthorized)
		return
	}

	code := q.Get("code")
	if code == "" {
		l.Warn().Msg("bad request: missing OAuth code")
		http.Error(w, "Missing OAuth code", http.StatusBadRequest)
		return
	}

	in, err := s.cfg.Installer.ExchangeCode(r.Context(), s.cfg.ClientID, s.cfg.ClientSecret, code, s.cfg.RedirectURL)
	if err != nil {
		if errors.Is(err, slack.ErrOAuthRejected) {
			l.Warn().Err(err).Msg("unauthorized: OAuth code exchange rejected")
			http.Error(w, "Installation failed", http.StatusUnauthorized)
			return
		}
		l.Error().Err(err).Msg("OAuth code exchange failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := s.cfg.Installations.Save(r.Context(), in); err != nil {
		l.Error().Err(err).Msg("failed to save installation")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	l.Info().Str("team", in.Team).Str("team_name", in.TeamName).Msg("Slack app installed")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "Slack app installed successfully, you may close this page.")
}
