package assetcache

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Cache states reported in the X-Cache response header.
const (
	cacheHit      = "HIT"
	cacheMiss     = "MISS"
	cacheNetwork  = "NETWORK"
	cacheFallback = "FALLBACK"
	cacheOffline  = "OFFLINE"
)

// Middleware intercepts same-origin GET requests. Everything else goes to
// next untouched.
//
// Sub-resources are served cache first and refreshed in the background.
// Navigations deliberately go to the network first, unlike sub-resources:
// pages are rendered from the current records, so a cache-first page would
// hide records saved since it was cached. When the network fails they fall
// back to the cached copy, then to the cached root document, then to the
// offline page.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || foreign(r) || c.bypassed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if navigational(r) {
			c.serveNavigation(w, r)
			return
		}
		c.serveAsset(w, r)
	})
}

func (c *Cache) serveAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if resp, ok := c.get(ctx, r); ok {
		write(w, resp, cacheHit)
		c.refresh(r)
		return
	}
	resp, err := c.fetcher.Fetch(ctx, r)
	if err != nil {
		log.WithError(err).WithField("path", r.URL.Path).Warn("Offline and not cached")
		http.Error(w, "Gateway Timeout", http.StatusGatewayTimeout)
		return
	}
	if resp.Status == http.StatusOK {
		if err := c.put(ctx, r, resp); err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Warn("Failed to cache asset")
		}
	}
	write(w, resp, cacheMiss)
}

func (c *Cache) serveNavigation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := c.fetcher.Fetch(ctx, r)
	if err == nil {
		if resp.Status == http.StatusOK {
			if err := c.put(ctx, r, resp); err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Warn("Failed to cache page")
			}
		}
		write(w, resp, cacheNetwork)
		return
	}

	log.WithError(err).WithField("path", r.URL.Path).Warn("Network unavailable, serving cached page")
	if cached, ok := c.get(ctx, r); ok {
		write(w, cached, cacheHit)
		return
	}
	if root, ok := c.Match(ctx, "/"); ok {
		write(w, root, cacheFallback)
		return
	}
	if c.offline != nil {
		w.Header().Set("X-Cache", cacheOffline)
		c.offline.ServeHTTP(w, r)
		return
	}
	http.Error(w, "Gateway Timeout", http.StatusGatewayTimeout)
}

// refresh re-fetches r in the background and stores a 200 response.
// Errors are ignored.
func (c *Cache) refresh(r *http.Request) {
	c.refreshes.Add(1)
	go func() {
		defer c.refreshes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()
		req := r.Clone(ctx)
		resp, err := c.fetcher.Fetch(ctx, req)
		if err != nil || resp.Status != http.StatusOK {
			log.WithField("path", r.URL.Path).Debug("Background refresh skipped")
			return
		}
		if err := c.put(ctx, req, resp); err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Debug("Background refresh not stored")
		}
	}()
}

func (c *Cache) bypassed(path string) bool {
	for _, p := range c.bypass {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// foreign reports whether r targets a host other than the one it was sent to.
func foreign(r *http.Request) bool {
	return r.URL.Host != "" && !strings.EqualFold(r.URL.Host, r.Host)
}

// navigational reports whether r loads a top-level document.
func navigational(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" {
		return dest == "document"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func write(w http.ResponseWriter, resp *Response, state string) {
	h := w.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", state)
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
