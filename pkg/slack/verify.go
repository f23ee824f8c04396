package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	contentTypeHeader = "Content-Type"
	timestampHeader   = "X-Slack-Request-Timestamp"
	signatureHeader   = "X-Slack-Signature"

	// Both slash commands and interactions are URL-encoded forms.
	formContentType = "application/x-www-form-urlencoded"

	// The maximum shift/delay that we allow between an inbound request's
	// timestamp, and our current timestamp, to defend against replay attacks.
	// See https://docs.slack.dev/authentication/verifying-requests-from-slack.
	maxDifference = 5 * time.Minute

	// Slack API implementation detail.
	// See https://docs.slack.dev/authentication/verifying-requests-from-slack.
	slackSigVersion = "v0"
)

// VerifyRequest checks the headers and signature of an inbound Slack request.
// It returns [http.StatusOK] if the request is authentic, or an error status
// code otherwise. The body must be the raw (unparsed) request body.
func VerifyRequest(l zerolog.Logger, h http.Header, body []byte, signingSecret string) int {
	statusCode := checkContentTypeHeader(l, h)
	if statusCode != http.StatusOK {
		return statusCode
	}

	statusCode = checkTimestampHeader(l, h, time.Now())
	if statusCode != http.StatusOK {
		return statusCode
	}

	return checkSignatureHeader(l, h, body, signingSecret)
}

// ValidToken checks the deprecated verification token which
// Slack includes in the payloads of slash commands and interactions.
func ValidToken(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func checkContentTypeHeader(l zerolog.Logger, h http.Header) int {
	v := h.Get(contentTypeHeader)
	if v != formContentType {
		l.Warn().Str("header", contentTypeHeader).Str("got", v).Str("want", formContentType).
			Msg("bad request: unexpected header value")
		return http.StatusBadRequest
	}

	return http.StatusOK
}

func checkTimestampHeader(l zerolog.Logger, h http.Header, now time.Time) int {
	ts := h.Get(timestampHeader)
	if ts == "" {
		l.Warn().Str("header", timestampHeader).Msg("bad request: missing header")
		return http.StatusBadRequest
	}

	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		l.Warn().Str("header", timestampHeader).Str("got", ts).
			Msg("bad request: invalid header value")
		return http.StatusBadRequest
	}

	d := now.Sub(time.Unix(secs, 0))
	if d.Abs() > maxDifference {
		l.Warn().Str("header", timestampHeader).Dur("difference", d).
			Msg("bad request: stale header value")
		return http.StatusBadRequest
	}

	return http.StatusOK
}

func checkSignatureHeader(l zerolog.Logger, h http.Header, body []byte, secret string) int {
	sig := h.Get(signatureHeader)
	if sig == "" {
		l.Warn().Str("header", signatureHeader).Msg("bad request: missing header")
		return http.StatusForbidden
	}

	if secret == "" {
		l.Warn().Msg("signing secret is not configured")
		return http.StatusInternalServerError
	}

	if !verifySignature(secret, h.Get(timestampHeader), sig, body) {
		l.Warn().Str("signature", sig).Msg("signature verification failed")
		return http.StatusForbidden
	}

	return http.StatusOK
}

// verifySignature implements
// https://docs.slack.dev/authentication/verifying-requests-from-slack.
func verifySignature(signingSecret, ts, want string, body []byte) bool {
	got := Signature(signingSecret, ts, body)
	return hmac.Equal([]byte(got), []byte(want))
}

// Signature computes the value of the "X-Slack-Signature" header
// for the given signing secret, request timestamp, and raw body.
func Signature(signingSecret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write(fmt.Appendf(nil, "%s:%s:", slackSigVersion, ts))
	mac.Write(body)
	return fmt.Sprintf("%s=%s", slackSigVersion, hex.EncodeToString(mac.Sum(nil)))
}
