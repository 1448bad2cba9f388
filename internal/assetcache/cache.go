// Package assetcache keeps a versioned local copy of the tracker's pages and
// static assets so that the UI keeps loading when the origin is unreachable.
package assetcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ukydev/oilchange-tracker/internal/db"
)

// DefaultVersion names the current cache generation.
const DefaultVersion = "box-motors-v1"

// DefaultManifest is pre-cached on Install.
var DefaultManifest = []string{
	"/",
	"/static/style.css",
	"/static/app.js",
	"/static/manifest.json",
	"/static/logo.svg",
}

// DefaultBypass lists path prefixes that are never cached.
var DefaultBypass = []string{"/api/", "/backup/", "/health"}

// Cache is a versioned on-disk response cache.
type Cache struct {
	root     string
	version  string
	manifest []string
	bypass   []string
	fetcher  Fetcher
	store    db.KeyValueStore
	offline  http.Handler

	refreshTimeout time.Duration
	refreshes      sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithManifest replaces DefaultManifest.
func WithManifest(paths []string) Option {
	return func(c *Cache) { c.manifest = paths }
}

// WithBypass replaces DefaultBypass.
func WithBypass(prefixes []string) Option {
	return func(c *Cache) { c.bypass = prefixes }
}

// WithOfflinePage sets the handler used for navigations when neither the
// network nor the cache can answer.
func WithOfflinePage(h http.Handler) Option {
	return func(c *Cache) { c.offline = h }
}

// New opens the cache generation version under root.
func New(root, version string, fetcher Fetcher, opts ...Option) (*Cache, error) {
	if version == "" {
		version = DefaultVersion
	}
	if strings.ContainsAny(version, `/\`) || version == "." || version == ".." {
		return nil, fmt.Errorf("invalid cache version %q", version)
	}
	store, err := db.NewFileStore(filepath.Join(root, version))
	if err != nil {
		return nil, fmt.Errorf("open asset cache: %w", err)
	}
	c := &Cache{
		root:           root,
		version:        version,
		manifest:       DefaultManifest,
		bypass:         DefaultBypass,
		fetcher:        fetcher,
		store:          store,
		refreshTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Version returns the cache generation name.
func (c *Cache) Version() string { return c.version }

// Install pre-caches the manifest concurrently. Failures are logged and
// the number of cached entries is returned.
func (c *Cache) Install(ctx context.Context) int {
	var (
		mu     sync.Mutex
		cached int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range c.manifest {
		p := p
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, p, nil)
			if err != nil {
				log.WithError(err).WithField("path", p).Error("Failed to pre-cache asset")
				return nil
			}
			resp, err := c.fetcher.Fetch(gctx, req)
			if err != nil {
				log.WithError(err).WithField("path", p).Error("Failed to pre-cache asset")
				return nil
			}
			if resp.Status != http.StatusOK {
				log.WithFields(log.Fields{"path": p, "status": resp.Status}).Error("Failed to pre-cache asset")
				return nil
			}
			if err := c.put(gctx, req, resp); err != nil {
				log.WithError(err).WithField("path", p).Error("Failed to pre-cache asset")
				return nil
			}
			mu.Lock()
			cached++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	log.WithFields(log.Fields{"version": c.version, "cached": cached, "manifest": len(c.manifest)}).Info("Asset cache installed")
	return cached
}

// Activate deletes every cache generation other than the current one and
// returns their names.
func (c *Cache) Activate() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	var pruned []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == c.version {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, e.Name())); err != nil {
			return pruned, fmt.Errorf("remove cache %s: %w", e.Name(), err)
		}
		log.WithField("cache", e.Name()).Info("Removed old asset cache")
		pruned = append(pruned, e.Name())
	}
	return pruned, nil
}

// Wait blocks until background refreshes have finished.
func (c *Cache) Wait() { c.refreshes.Wait() }

// Close waits for background refreshes and closes the store.
func (c *Cache) Close(ctx context.Context) error {
	c.Wait()
	return c.store.Close(ctx)
}

func cacheKey(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) get(ctx context.Context, r *http.Request) (*Response, bool) {
	data, ok, err := c.store.Get(ctx, cacheKey(r))
	if err != nil {
		log.WithError(err).WithField("path", r.URL.Path).Warn("Asset cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		log.WithError(err).WithField("path", r.URL.Path).Warn("Asset cache entry is corrupt")
		return nil, false
	}
	return &resp, true
}

func (c *Cache) put(ctx context.Context, r *http.Request, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, cacheKey(r), data)
}

// Match returns the cached response for path, if any.
func (c *Cache) Match(ctx context.Context, path string) (*Response, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, false
	}
	return c.get(ctx, req)
}
