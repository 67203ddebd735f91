// Package registry is a cached client for the npm registry HTTP API.
//
// All lookups go through a [cache.Cache] with a fixed TTL before touching
// the network. Transient failures (connection errors, 5xx responses) are
// retried with backoff; a 404 is the distinguished [cache.ErrNotFound]
// outcome and is never retried.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkglens/pkglens/pkg/buildinfo"
	"github.com/pkglens/pkglens/pkg/cache"
	"github.com/pkglens/pkglens/pkg/observability"
)

const (
	// DefaultBaseURL is the public npm registry.
	DefaultBaseURL = "https://registry.npmjs.org"

	// DefaultWebURL is the public package page base.
	DefaultWebURL = "https://www.npmjs.com/package"

	// DefaultTTL is how long registry responses stay fresh in cache.
	DefaultTTL = time.Hour

	httpTimeout = 10 * time.Second
)

// Client performs cached lookups against an npm-compatible registry.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	baseURL string
	ttl     time.Duration
	headers map[string]string
}

// NewClient creates a registry client. An empty baseURL selects the
// public npm registry; a non-positive ttl selects DefaultTTL. The cache
// must not be nil (use cache.NewNullCache to disable caching).
func NewClient(c cache.Cache, baseURL string, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		cache:   c,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		ttl:     ttl,
		headers: map[string]string{
			"User-Agent": "pkglens/" + buildinfo.Version,
		},
	}
}

// BaseURL returns the registry endpoint this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// WebURL returns the public package page for name.
func WebURL(name string) string {
	return DefaultWebURL + "/" + name
}

// Metadata returns display metadata for the latest version of name.
// Results are cached under "npm:<name>"; refresh bypasses the cache.
// A missing package yields a cache.ErrNotFound error.
func (c *Client) Metadata(ctx context.Context, name string, refresh bool) (*PackageMetadata, error) {
	name = normalizeName(name)
	key := "npm:" + name

	var meta PackageMetadata
	err := c.cached(ctx, "metadata", key, refresh, &meta, func() error {
		return c.fetchLatest(ctx, name, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// MetadataVersion returns display metadata for one exact version of name.
// Results are cached under "npm:<name>@<version>".
func (c *Client) MetadataVersion(ctx context.Context, name, version string, refresh bool) (*PackageMetadata, error) {
	name = normalizeName(name)
	key := "npm:" + name + "@" + version

	var meta PackageMetadata
	err := c.cached(ctx, "metadata", key, refresh, &meta, func() error {
		var doc packageDoc
		if err := c.getJSON(ctx, c.baseURL+"/"+url.PathEscape(name)+"/"+url.PathEscape(version), &doc); err != nil {
			if errors.Is(err, cache.ErrNotFound) {
				return fmt.Errorf("%w: npm package %s@%s", err, name, version)
			}
			return err
		}
		meta = *doc.metadata()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// HasTypes reports whether a @types companion package exists for name.
// The probe is a cached metadata lookup. Only a definite 404 counts as
// "no companion"; network failures propagate so callers can decide.
func (c *Client) HasTypes(ctx context.Context, name string) (bool, error) {
	_, err := c.Metadata(ctx, "@types/"+name, false)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Latest returns the latest published version of name.
func (c *Client) Latest(ctx context.Context, name string) (string, error) {
	meta, err := c.Metadata(ctx, name, false)
	if err != nil {
		return "", err
	}
	return meta.Version, nil
}

func (c *Client) fetchLatest(ctx context.Context, name string, meta *PackageMetadata) error {
	var data registryResponse
	if err := c.getJSON(ctx, c.baseURL+"/"+url.PathEscape(name), &data); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, name)
		}
		return err
	}

	latest := data.DistTags.Latest
	doc, ok := data.Versions[latest]
	if !ok {
		return fmt.Errorf("version %s not found for %s", latest, name)
	}
	if doc.Name == "" {
		doc.Name = data.Name
	}
	if doc.Version == "" {
		doc.Version = latest
	}

	*meta = *doc.metadata()
	meta.Latest = latest
	return nil
}

// cached retrieves a value from cache or executes fetch and stores the
// result for the client TTL. With refresh set, the cache is bypassed and
// fetch always runs. Fetch failures are retried with backoff when marked
// retryable.
func (c *Client) cached(ctx context.Context, keyType, key string, refresh bool, v any, fetch func() error) error {
	if !refresh {
		if data, hit, _ := c.cache.Get(ctx, key); hit {
			if err := json.Unmarshal(data, v); err == nil {
				observability.Cache().OnCacheHit(ctx, keyType)
				return nil
			}
			_ = c.cache.Delete(ctx, key)
		}
		observability.Cache().OnCacheMiss(ctx, keyType)
	}

	if err := cache.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}

	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
		observability.Cache().OnCacheSet(ctx, keyType, len(data))
	}
	return nil
}

// getJSON performs an HTTP GET and decodes the JSON response into v.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	u := req.URL
	observability.HTTP().OnRequest(ctx, http.MethodGet, u.Host, u.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, u.Host, u.Path, err)
		return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()

	observability.HTTP().OnResponse(ctx, http.MethodGet, u.Host, u.Path, resp.StatusCode, time.Since(start))
	if err := checkStatus(resp.StatusCode); err != nil {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return cache.ErrNotFound
	case code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", cache.ErrNetwork, code)
	}
}

// normalizeName canonicalizes a package name for URLs and cache keys.
// npm names are lowercase by registry rule.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
