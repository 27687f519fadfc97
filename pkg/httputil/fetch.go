package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/wardline/wardline/pkg/cache"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/observability"
)

const downloadTimeout = 5 * time.Minute

// NewHTTPClient creates an HTTP client with a timeout sized for data
// downloads (census payloads and boundary archives can run to hundreds
// of megabytes).
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: downloadTimeout}
}

// Fetcher performs cached HTTP GETs. Response bodies are stored in the
// cache keyed by namespace and URL, so repeated runs against the same
// state reuse previously downloaded payloads.
//
// With CacheOnly set, the Fetcher never touches the network: a cache miss
// becomes a NOT_FOUND error. This backs offline runs against a cache
// prepopulated by `wardline fetch`.
type Fetcher struct {
	HTTP      *http.Client
	Cache     cache.Cache
	Keyer     cache.Keyer
	Namespace string
	TTL       time.Duration
	CacheOnly bool
	Attempts  int
	Backoff   time.Duration
}

// NewFetcher creates a Fetcher for the given namespace.
// A nil cache disables caching; a nil keyer uses the default.
func NewFetcher(c cache.Cache, keyer cache.Keyer, namespace string) *Fetcher {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Fetcher{
		HTTP:      NewHTTPClient(),
		Cache:     c,
		Keyer:     keyer,
		Namespace: namespace,
		TTL:       24 * time.Hour,
		Attempts:  3,
		Backoff:   time.Second,
	}
}

// Get fetches url, serving from cache when possible. The boolean reports
// whether the body came from cache. Transient failures (network errors,
// 5xx, 429) are retried with backoff; 404 maps to NOT_FOUND immediately.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, bool, error) {
	if err := apperrors.ValidateURL(url); err != nil {
		return nil, false, err
	}
	observability.Fetch().OnFetchStart(ctx, f.Namespace, url)

	key := f.Keyer.HTTPKey(f.Namespace, url)
	if data, hit, err := f.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, f.Namespace)
		observability.Fetch().OnFetchDone(ctx, f.Namespace, len(data), true, nil)
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, f.Namespace)

	if f.CacheOnly {
		err := apperrors.Wrap(apperrors.ErrCodeNotFound, cache.ErrCacheMiss,
			"%s not cached (cache-only mode)", url)
		observability.Fetch().OnFetchDone(ctx, f.Namespace, 0, false, err)
		return nil, false, err
	}

	var body []byte
	err := Retry(ctx, f.Attempts, f.Backoff, func() error {
		var fetchErr error
		body, fetchErr = f.fetch(ctx, url)
		return fetchErr
	})
	observability.Fetch().OnFetchDone(ctx, f.Namespace, len(body), false, err)
	if err != nil {
		return nil, false, err
	}

	_ = f.Cache.Set(ctx, key, body, f.TTL)
	observability.Cache().OnCacheSet(ctx, f.Namespace, len(body))
	return body, false, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "build request for %s", url)
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, &RetryableError{Err: apperrors.Wrap(apperrors.ErrCodeNetwork, err, "GET %s", url)}
	}
	defer resp.Body.Close()

	if err := checkStatus(url, resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Err: apperrors.Wrap(apperrors.ErrCodeNetwork, err, "read %s", url)}
	}
	return body, nil
}

func checkStatus(url string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return apperrors.New(apperrors.ErrCodeNotFound, "%s returned 404", url)
	case code == http.StatusTooManyRequests:
		return &RetryableError{Err: apperrors.New(apperrors.ErrCodeRateLimited, "%s returned 429", url)}
	case code >= 500:
		return &RetryableError{Err: apperrors.New(apperrors.ErrCodeNetwork, "%s returned status %d", url, code)}
	default:
		return apperrors.New(apperrors.ErrCodeNetwork, "%s returned status %d", url, code)
	}
}
