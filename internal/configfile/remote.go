package configfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/rs/zerolog/log"
)

const (
	remoteFetchTimeout = 10 * time.Second
	remoteFetchTries   = 4

	// maxRemoteConfigSize caps a remote document at 1MiB. Real configs are a
	// few KiB, anything bigger is a misdirected URL.
	maxRemoteConfigSize = 1 << 20
)

// retryInterval seeds the exponential backoff. Shortened in tests.
var retryInterval = 500 * time.Millisecond

var remoteClient = newRemoteClient()

// newRemoteClient builds an HTTP client with an on disk response cache, so
// conditional requests survive across CLI invocations. Falls back to an in
// memory cache when no user cache directory is available.
func newRemoteClient() *http.Client {
	dir, err := os.UserCacheDir()
	if err != nil {
		return &http.Client{
			Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
		}
	}

	cache := diskcache.New(filepath.Join(dir, "unibuild", "http"))

	return &http.Client{
		Transport: httpcache.NewTransport(cache),
	}
}

// fetchRemote downloads a config document over HTTP. Server errors and network
// failures are retried with exponential backoff, client errors fail
// immediately.
func fetchRemote(ctx context.Context, source string) ([]byte, error) {
	operation := func() ([]byte, error) {
		reqCtx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, source, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}

		res, err := remoteClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch config: %w", err)
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode >= http.StatusInternalServerError:
			return nil, fmt.Errorf("failed to fetch config: status %s", res.Status)
		case res.StatusCode >= http.StatusBadRequest:
			return nil, backoff.Permanent(fmt.Errorf("failed to fetch config: status %s", res.Status))
		}

		raw, err := io.ReadAll(io.LimitReader(res.Body, maxRemoteConfigSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read config body: %w", err)
		}

		return raw, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = retryInterval

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(remoteFetchTries),
	)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("source", source).Int("bytes", len(raw)).Msg("fetched remote config")

	return raw, nil
}
