package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	slackgo "github.com/slack-go/slack"

	"github.com/tzrikka/slashroute/pkg/session"
)

const (
	timeout = 3 * time.Second
)

var (
	ErrNoToken       = errors.New("no Slack bot token for team")
	ErrOAuthRejected = errors.New("OAuth code exchange rejected")
)

// TokenSource returns the bot token of an installed Slack team (workspace).
type TokenSource interface {
	Token(ctx context.Context, team string) (string, error)
}

// StaticToken is a [TokenSource] for single-workspace deployments.
type StaticToken string

func (t StaticToken) Token(_ context.Context, _ string) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// FallbackTokens tries each [TokenSource] in order, until one returns a token.
type FallbackTokens []TokenSource

func (f FallbackTokens) Token(ctx context.Context, team string) (string, error) {
	var errs []error
	for _, src := range f {
		t, err := src.Token(ctx, team)
		if err == nil && t != "" {
			return t, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return "", ErrNoToken
	}
	return "", errors.Join(errs...)
}

// Client calls the Slack Web API on behalf of installed teams.
type Client struct {
	tokens     TokenSource
	httpClient *http.Client
	apiURL     string
}

type ClientOption func(*Client)

// WithAPIURL overrides the base URL of the Slack Web API (e.g. for tests).
func WithAPIURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" && !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.apiURL = u
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{tokens: tokens, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) api(ctx context.Context, team string) (*slackgo.Client, error) {
	token, err := c.tokens.Token(ctx, team)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrNoToken, team, err)
	}

	opts := []slackgo.Option{slackgo.OptionHTTPClient(c.httpClient)}
	if c.apiURL != "" {
		opts = append(opts, slackgo.OptionAPIURL(c.apiURL))
	}
	return slackgo.New(token, opts...), nil
}

// Profile implements [session.ProfileFetcher], based on
// https://docs.slack.dev/reference/methods/users.info.
func (c *Client) Profile(ctx context.Context, team, userID string) (*session.Profile, error) {
	api, err := c.api(ctx, team)
	if err != nil {
		return nil, err
	}

	u, err := api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Slack API error: %w", err)
	}

	return &session.Profile{
		ID:       u.ID,
		Name:     u.Name,
		RealName: u.RealName,
		Email:    u.Profile.Email,
		TZ:       u.TZ,
		Image:    u.Profile.Image72,
	}, nil
}

// Installation is the result of a successful OAuth v2 code exchange.
type Installation struct {
	Team      string
	TeamName  string
	Token     string
	BotUserID string
	Scope     string
	Response  *slackgo.OAuthV2Response
}

// ExchangeCode completes an app installation, based on
// https://docs.slack.dev/reference/methods/oauth.v2.access.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*Installation, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := slackgo.GetOAuthV2ResponseContext(ctx, c.httpClient, clientID, clientSecret, code, redirectURI)
	if err != nil {
		if errors.As(err, &slackgo.SlackErrorResponse{}) {
			return nil, fmt.Errorf("%w: %w", ErrOAuthRejected, err)
		}
		return nil, fmt.Errorf("OAuth code exchange failed: %w", err)
	}
	if resp.Team.ID == "" || resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing team ID or access token", ErrOAuthRejected)
	}

	return &Installation{
		Team:      resp.Team.ID,
		TeamName:  resp.Team.Name,
		Token:     resp.AccessToken,
		BotUserID: resp.BotUserID,
		Scope:     resp.Scope,
		Response:  resp,
	}, nil
}

// InstallURL returns the landing page URL of app installations, based on
// https://docs.slack.dev/authentication/installing-with-oauth.
func InstallURL(clientID, scopes string) string {
	return fmt.Sprintf("https://slack.com/oauth/v2/authorize?client_id=%s&scope=%s", clientID, scopes)
}
