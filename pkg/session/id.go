package session

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the fields of a session ID. Slack user IDs and
// slash command names never contain it, but nothing else guarantees that,
// so [EncodeID] refuses to produce an ID that [DecodeID] would misread.
const Delimiter = "-"

var (
	ErrMalformedID = errors.New("malformed session ID")
	ErrDelimiter   = errors.New("session ID part is empty or contains the delimiter")
)

// EncodeID joins a slash command name, the originator's user ID, and
// zero or more additional participant IDs into an opaque string, which
// is used as the callback ID of interactive Slack messages and dialogs.
func EncodeID(slash, originator string, with ...string) (string, error) {
	parts := make([]string, 0, len(with)+2)
	parts = append(parts, slash, originator)
	parts = append(parts, with...)

	for _, p := range parts {
		if p == "" || strings.Contains(p, Delimiter) {
			return "", fmt.Errorf("%w: %q", ErrDelimiter, p)
		}
	}

	return strings.Join(parts, Delimiter), nil
}

// DecodeID is the inverse of [EncodeID]. The returned participants
// list is nil if the ID addresses a single-party session.
func DecodeID(id string) (slash, originator string, with []string, err error) {
	parts := strings.Split(id, Delimiter)
	if len(parts) < 2 {
		err = fmt.Errorf("%w: %q", ErrMalformedID, id)
		return
	}

	for _, p := range parts {
		if p == "" {
			err = fmt.Errorf("%w: %q", ErrMalformedID, id)
			return
		}
	}

	slash, originator = parts[0], parts[1]
	if len(parts) > 2 {
		with = parts[2:]
	}
	return
}
