package assetcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBody bounds what is kept of a single response.
const maxBody = 16 << 20

// Response is a fully buffered HTTP response.
type Response struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Fetcher retrieves a resource from the network.
type Fetcher interface {
	Fetch(ctx context.Context, r *http.Request) (*Response, error)
}

// HandlerFetcher serves fetches from an in-process handler.
type HandlerFetcher struct {
	Handler http.Handler
}

// Fetch runs the handler on a copy of r.
func (f HandlerFetcher) Fetch(ctx context.Context, r *http.Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := &bufferedWriter{header: make(http.Header)}
	f.Handler.ServeHTTP(w, r.Clone(ctx))
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return &Response{Status: w.status, Header: w.header, Body: w.body.Bytes()}, nil
}

// bufferedWriter is a minimal http.ResponseWriter that keeps everything in
// memory.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

// OriginFetcher fetches from a remote tracker over HTTP.
type OriginFetcher struct {
	Origin *url.URL
	Client *http.Client
}

// NewOriginFetcher parses origin, which must be an absolute http(s) URL.
func NewOriginFetcher(origin string) (*OriginFetcher, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("origin must be an absolute http(s) URL, got %q", origin)
	}
	return &OriginFetcher{Origin: u, Client: &http.Client{Timeout: 15 * time.Second}}, nil
}

// Fetch issues a GET for r's path and query against the origin.
func (f *OriginFetcher) Fetch(ctx context.Context, r *http.Request) (*Response, error) {
	target := *f.Origin
	target.Path = strings.TrimSuffix(f.Origin.Path, "/") + r.URL.Path
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	for _, h := range []string{"Accept", "Accept-Language", "User-Agent"} {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBody {
		return nil, errors.New("response too large to cache")
	}
	header := resp.Header.Clone()
	header.Del("Content-Length")
	return &Response{Status: resp.StatusCode, Header: header, Body: body}, nil
}
