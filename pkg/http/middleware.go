package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tzrikka/slashroute/pkg/slack"
)

const (
	maxBodySize = 1 << 20 // 1 MiB.

	requestIDHeader = "X-Request-Id"
)

type rawBodyKey struct{}

// RawBody returns the unparsed body of an inbound request,
// as preserved by the body normalization middleware.
func RawBody(ctx context.Context) []byte {
	b, _ := ctx.Value(rawBodyKey{}).([]byte)
	return b
}

// requestLogger attaches a request-scoped logger, with a unique
// request ID, to the context of each inbound HTTP request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := shortuuid.New()
		l := log.With().Str("request_id", id).Str("http_method", r.Method).
			Str("url_path", r.URL.EscapedPath()).Logger()
		l.Info().Msg("received HTTP request")

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

// normalizeBody reads the entire body of an inbound form-encoded request,
// preserves the raw bytes in the request's context (for signature checks),
// and parses the form. Handlers can call [http.Request.ParseForm] again.
func (s *Server) normalizeBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		_ = r.Body.Close()
		if err != nil {
			l.Warn().Err(err).Msg("bad request: failed to read body")
			s.reject(w, http.StatusBadRequest, "unreadable_body")
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), rawBodyKey{}, raw))
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err := r.ParseForm(); err != nil {
			l.Warn().Err(err).Msg("bad request: failed to parse form")
			s.reject(w, http.StatusBadRequest, "malformed_form")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// verifySlack authenticates inbound Slack requests, with the app's signing
// secret if it's configured, or else with the deprecated verification token.
// It must run after [Server.normalizeBody].
func (s *Server) verifySlack(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())

		if s.cfg.SigningSecret != "" {
			if status := slack.VerifyRequest(*l, r.Header, RawBody(r.Context()), s.cfg.SigningSecret); status != http.StatusOK {
				s.reject(w, status, "signature")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !slack.ValidToken(formToken(r), s.cfg.VerificationToken) {
			l.Warn().Msg("unauthorized: invalid verification token")
			s.reject(w, http.StatusUnauthorized, "token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// formToken extracts the verification token from either a slash
// command form or the JSON payload of an interactive event.
func formToken(r *http.Request) string {
	if t := r.PostForm.Get("token"); t != "" {
		return t
	}

	var p struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(r.PostForm.Get("payload")), &p); err != nil {
		return ""
	}
	return p.Token
}
