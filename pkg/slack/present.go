package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	slackgo "github.com/slack-go/slack"
	"gopkg.in/yaml.v3"

	"github.com/tzrikka/slashroute/pkg/command"
	"github.com/tzrikka/slashroute/pkg/trigger"
)

var ErrUndeliverable = errors.New("view cannot be delivered")

// Present delivers a rendered view in response to a trigger. Inline views
// are posted to the trigger's response URL, replacing the interactive message
// that triggered them, if any. Modal views are opened as dialogs, which is
// possible only within 3 seconds of the trigger.
//
// The rendered body is a YAML (or JSON) document: a message in the format of
// https://docs.slack.dev/messaging/#payloads or, for modal views, a dialog in
// the format of https://docs.slack.dev/legacy/legacy-dialogs. Inline views may
// also render plain text, or any other document which isn't a message.
// Attachments and dialogs without a callback ID are routed back to the
// given session.
func (c *Client) Present(ctx context.Context, t trigger.Trigger, v command.View, body, sessionID string) error {
	if v.Modal {
		return c.openDialog(ctx, t, body, sessionID)
	}
	return c.postMessage(ctx, t, body, sessionID)
}

func (c *Client) postMessage(ctx context.Context, t trigger.Trigger, body, sessionID string) error {
	if t.ResponseURL == "" {
		return fmt.Errorf("%w: missing response URL", ErrUndeliverable)
	}

	msg := new(slackgo.WebhookMessage)
	ok, err := decodeDocument(body, msg)
	if err != nil || !ok || (msg.Text == "" && len(msg.Attachments) == 0 && msg.Blocks == nil) {
		msg = &slackgo.WebhookMessage{Text: body}
	}

	for i := range msg.Attachments {
		if msg.Attachments[i].CallbackID == "" {
			msg.Attachments[i].CallbackID = sessionID
		}
	}
	msg.ReplaceOriginal = !t.IsSlash()

	if err := slackgo.PostWebhookCustomHTTPContext(ctx, t.ResponseURL, c.httpClient, msg); err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

type dialogDocument struct {
	Title          string          `json:"title"`
	SubmitLabel    string          `json:"submit_label"`
	State          string          `json:"state"`
	CallbackID     string          `json:"callback_id"`
	NotifyOnCancel bool            `json:"notify_on_cancel"`
	Elements       []dialogElement `json:"elements"`
}

type dialogElement struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder"`
	Optional    bool   `json:"optional"`
}

func (c *Client) openDialog(ctx context.Context, t trigger.Trigger, body, sessionID string) error {
	if t.TriggerID == "" {
		return fmt.Errorf("%w: missing trigger ID", ErrUndeliverable)
	}

	d, err := buildDialog(body, sessionID)
	if err != nil {
		return err
	}

	api, err := c.api(ctx, t.Team)
	if err != nil {
		return err
	}

	if err := api.OpenDialogContext(ctx, t.TriggerID, d); err != nil {
		return fmt.Errorf("failed to open dialog: %w", err)
	}
	return nil
}

func buildDialog(body, sessionID string) (slackgo.Dialog, error) {
	doc := new(dialogDocument)
	ok, err := decodeDocument(body, doc)
	if err != nil || !ok {
		return slackgo.Dialog{}, fmt.Errorf("invalid dialog: %q", body)
	}
	if doc.Title == "" || doc.State == "" {
		return slackgo.Dialog{}, errors.New("invalid dialog: title and state are required")
	}

	d := slackgo.Dialog{
		CallbackID:     doc.CallbackID,
		State:          doc.State,
		Title:          doc.Title,
		SubmitLabel:    doc.SubmitLabel,
		NotifyOnCancel: doc.NotifyOnCancel,
	}
	if d.CallbackID == "" {
		d.CallbackID = sessionID
	}

	for _, e := range doc.Elements {
		var el *slackgo.TextInputElement
		switch e.Type {
		case "", "text":
			el = slackgo.NewTextInput(e.Name, e.Label, e.Value)
		case "textarea":
			el = slackgo.NewTextAreaInput(e.Name, e.Label, e.Value)
		default:
			return slackgo.Dialog{}, fmt.Errorf("invalid dialog: unsupported element type %q", e.Type)
		}
		el.Placeholder = e.Placeholder
		el.Optional = e.Optional
		d.Elements = append(d.Elements, el)
	}

	return d, nil
}

// decodeDocument converts a rendered YAML (or JSON) mapping into v, based
// on v's JSON struct tags. It returns false if the body isn't a mapping.
func decodeDocument(body string, v any) (bool, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return false, nil
	}
	if _, ok := doc.(map[string]any); !ok {
		return false, nil
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, err
	}
	return true, nil
}
