package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lucasew/snaprotate/internal/sanitize"
)

const slackHooksBase = "https://hooks.slack.com/services/"

const DefaultSlackUsername = "snaprotate"

type slackMessage struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// Slack posts the report text to an incoming webhook.
type Slack struct {
	webhookURL string
	channel    string
	username   string
	client     *http.Client
}

// SlackWebhookURL returns webhookURL when set, otherwise the hooks URL built
// from the webhook secret path ("T000/B000/XXXX").
func SlackWebhookURL(webhookURL, secret string) string {
	if webhookURL != "" {
		return webhookURL
	}
	if secret == "" {
		return ""
	}
	return slackHooksBase + strings.TrimPrefix(secret, "/")
}

func NewSlack(webhookURL, channel, username string, client *http.Client) (*Slack, error) {
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}
	if username == "" {
		username = DefaultSlackUsername
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Slack{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
		client:     client,
	}, nil
}

func (s *Slack) Name() string {
	return "slack"
}

func (s *Slack) Notify(ctx context.Context, report Report) error {
	data, err := json.Marshal(slackMessage{
		Channel:  s.channel,
		Username: s.username,
		Text:     report.Text(),
	})
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build slack request: %s", sanitize.Text(err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// the error text embeds the webhook URL, which is a secret
		return errors.New(sanitize.Text(err.Error()))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("slack webhook: unexpected status %d: %s", resp.StatusCode, sanitize.Text(strings.TrimSpace(string(body))))
	}
	return nil
}
