package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackWebhookURL(t *testing.T) {
	assert.Equal(t, "https://example.com/hook", SlackWebhookURL("https://example.com/hook", "T0/B0/X"))
	assert.Equal(t, "https://hooks.slack.com/services/T0/B0/X", SlackWebhookURL("", "T0/B0/X"))
	assert.Equal(t, "https://hooks.slack.com/services/T0/B0/X", SlackWebhookURL("", "/T0/B0/X"))
	assert.Equal(t, "", SlackWebhookURL("", ""))
}

func TestSlackNotify(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s, err := NewSlack(srv.URL, "#ops", "", srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "slack", s.Name())

	report := Report{Status: StatusSuccess, Log: []string{"Creating snapshot", ">>> DONE"}}
	require.NoError(t, s.Notify(context.Background(), report))

	assert.Equal(t, "#ops", got.Channel)
	assert.Equal(t, DefaultSlackUsername, got.Username)
	assert.Equal(t, "Creating snapshot\n>>> DONE", got.Text)
}

func TestSlackNotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no_service"))
	}))
	defer srv.Close()

	s, err := NewSlack(srv.URL, "", "bot", srv.Client())
	require.NoError(t, err)

	err = s.Notify(context.Background(), Report{Status: StatusSuccess})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "no_service")
}

func TestSlackErrorBodyIsRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid_payload: Authorization: Bearer leakedtoken"))
	}))
	defer srv.Close()

	s, err := NewSlack(srv.URL, "", "", srv.Client())
	require.NoError(t, err)

	err = s.Notify(context.Background(), Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_payload")
	assert.NotContains(t, err.Error(), "leakedtoken")
}

func TestSlackTransportErrorHidesSecret(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, assert.AnError
	})}
	s, err := NewSlack(SlackWebhookURL("", "T0/B0/SECRETPART"), "", "", client)
	require.NoError(t, err)

	err = s.Notify(context.Background(), Report{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRETPART")
	assert.Contains(t, err.Error(), "hooks.slack.com/services/[REDACTED]")
}

func TestNewSlackRequiresURL(t *testing.T) {
	_, err := NewSlack("", "#ops", "", nil)
	assert.Error(t, err)
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
