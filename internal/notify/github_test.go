package notify

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGitHubServer(t *testing.T, mux *http.ServeMux) *url.URL {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	return u
}

func TestNewGitHubValidation(t *testing.T) {
	_, err := NewGitHub("owner", 1, "t", 0, nil, nil)
	assert.Error(t, err)

	_, err = NewGitHub("owner/repo/extra", 1, "t", 0, nil, nil)
	assert.Error(t, err)

	_, err = NewGitHub("owner/repo", 0, "t", 0, nil, nil)
	assert.Error(t, err)

	_, err = NewGitHub("owner/repo", 1, "", 0, nil, nil)
	assert.Error(t, err)

	g, err := NewGitHub("owner/repo", 1, "t", 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "github", g.Name())
}

func TestGitHubNotifyWithToken(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	})

	var viaClient int
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			viaClient++
			return http.DefaultTransport.RoundTrip(r)
		}),
	}

	g, err := NewGitHub("owner/repo", 7, "personal-token", 0, nil, client)
	require.NoError(t, err)
	g.baseURL = newGitHubServer(t, mux)

	report := Report{
		Instance: "web-1",
		Policy:   "keep-newest",
		Status:   StatusSuccess,
		Log:      []string{"Creating snapshot", ">>> DONE"},
	}
	require.NoError(t, g.Notify(context.Background(), report))

	assert.Equal(t, 1, viaClient)
	assert.Equal(t, "Bearer personal-token", gotAuth)
	assert.Contains(t, gotBody["body"], "`web-1`")
	assert.Contains(t, gotBody["body"], "Creating snapshot\n>>> DONE")
	assert.Contains(t, gotBody["body"], "**success**")
}

func TestGitHubNotifyAsApp(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	var commentAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/installation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 99}`))
	})
	mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token": "installation-token"}`))
	})
	mux.HandleFunc("/repos/owner/repo/issues/3/comments", func(w http.ResponseWriter, r *http.Request) {
		commentAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	})

	g, err := NewGitHub("owner/repo", 3, "", 12345, keyPEM, nil)
	require.NoError(t, err)
	g.baseURL = newGitHubServer(t, mux)

	require.NoError(t, g.Notify(context.Background(), Report{Status: StatusFailure, Error: "boom"}))
	assert.Equal(t, "Bearer installation-token", commentAuth)
}

func TestGitHubNotifyBadKey(t *testing.T) {
	g, err := NewGitHub("owner/repo", 3, "", 12345, []byte("not a key"), nil)
	require.NoError(t, err)

	err = g.Notify(context.Background(), Report{})
	assert.ErrorContains(t, err, "parse private key")
}

func TestReportMarkdownFailure(t *testing.T) {
	body := (Report{Instance: "web-1", Policy: "purge", Status: StatusFailure, Error: "boom"}).Markdown()
	assert.Contains(t, body, ":x:")
	assert.Contains(t, body, "!!! FAILED: boom")
}
