package trigger

import (
	"encoding/json"
	"fmt"
)

// Payload is the subset of Slack's interaction payload which
// is consumed by [FromAction]. Slack sends it as a JSON string,
// in the "payload" field of a URL-encoded form.
type Payload struct {
	Type        string `json:"type"`
	Token       string `json:"token"`
	CallbackID  string `json:"callback_id"`
	ResponseURL string `json:"response_url,omitempty"`
	TriggerID   string `json:"trigger_id,omitempty"`

	Team    idField `json:"team"`
	Channel idField `json:"channel"`
	User    idField `json:"user"`

	// Interactive messages.
	Actions []Action `json:"actions,omitempty"`

	// Dialog submissions.
	State      string         `json:"state,omitempty"`
	Submission map[string]any `json:"submission,omitempty"`
}

type idField struct {
	ID string `json:"id"`
}

type Action struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParsePayload decodes the JSON string in the "payload" form field.
func ParsePayload(raw string) (Payload, error) {
	if raw == "" {
		return Payload{}, fmt.Errorf("%w: missing payload", ErrMalformedPayload)
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return p, nil
}
