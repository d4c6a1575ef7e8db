package configfile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRemote swaps the cached HTTP client for a plain one and shrinks the
// retry interval so tests stay fast and touch no real cache directory.
func stubRemote(t *testing.T) {
	t.Helper()

	prevClient, prevInterval := remoteClient, retryInterval
	remoteClient = &http.Client{}
	retryInterval = time.Millisecond

	t.Cleanup(func() {
		remoteClient, retryInterval = prevClient, prevInterval
	})
}

func TestFetchRemote_RetriesServerErrors(t *testing.T) {
	stubRemote(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("mode: production\n"))
	}))
	defer server.Close()

	raw, err := fetchRemote(context.Background(), server.URL+"/unibuild.config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "mode: production\n", string(raw))
	assert.EqualValues(t, 3, attempts.Load())
}

func TestFetchRemote_ClientErrorsAreNotRetried(t *testing.T) {
	stubRemote(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := fetchRemote(context.Background(), server.URL+"/unibuild.config.yaml")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "404")
	assert.EqualValues(t, 1, attempts.Load())
}

func TestLoad_Remote(t *testing.T) {
	stubRemote(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/team/unibuild.config.yaml", r.URL.Path)
		_, _ = w.Write([]byte("html:\n  title: Remote\n"))
	}))
	defer server.Close()

	cfg, info, err := Load(context.Background(), server.URL+"/team/unibuild.config.yaml", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "Remote", cfg.HTML.Title)
	assert.Equal(t, "yaml", info.Format)
	assert.NotEmpty(t, info.Fingerprint)
}
