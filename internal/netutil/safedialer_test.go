package netutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeDialerRejectsLoopback(t *testing.T) {
	d := &SafeDialer{Timeout: time.Second}
	_, err := d.DialContext(context.Background(), "tcp", "127.0.0.1:80")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestNewHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Run("private network blocked", func(t *testing.T) {
		client := NewHTTPClient(5*time.Second, false)
		_, err := client.Get(srv.URL)
		assert.Error(t, err)
	})

	t.Run("private network allowed", func(t *testing.T) {
		client := NewHTTPClient(5*time.Second, true)
		assert.Equal(t, 5*time.Second, client.Timeout)
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
