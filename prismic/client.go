// Package prismic is a small client for a Prismic-style headless content
// repository: predicate queries, lookups by uid and id, and cursor paging.
//
// Every failure is classified once at this boundary (see Error) and logged
// once; the client never retries.
package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultCacheTTL     = 10 * time.Minute
	defaultMasterRefTTL = 5 * time.Second
	defaultHTTPTimeout  = 15 * time.Second
	maxBodySize         = 16 << 20
)

// Logger is the subset of echo's logger the client writes to.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// Observer receives per-call measurements. Used for metrics.
type Observer interface {
	Request(op string, d time.Duration, err error)
	CacheLookup(hit bool)
}

type noopObserver struct{}

func (noopObserver) Request(string, time.Duration, error) {}
func (noopObserver) CacheLookup(bool)                     {}

// QueryOptions refine a query. A zero Ref means the current master ref.
type QueryOptions struct {
	Fetch     []string // field projection, e.g. "post.title"
	PageSize  int
	Page      int
	Ref       string
	Orderings []string // e.g. "document.first_publication_date desc"
	After     string
	Lang      string
}

// Client talks to one content repository.
type Client struct {
	cfg      Config
	host     string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	refTTL   time.Duration
	logger   Logger
	observer Observer
	tracer   trace.Tracer

	mu         sync.Mutex
	masterRef  string
	refFetched time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache sets the response cache. Pass nil to disable caching.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithCacheTTL sets how long cached responses are kept.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithMasterRefTTL sets how long the master ref is reused before the API
// root is fetched again.
func WithMasterRefTTL(ttl time.Duration) Option {
	return func(c *Client) { c.refTTL = ttl }
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient validates cfg and builds a client. It fails fast with
// ErrInvalidConfig when the endpoint or access token is missing.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.endpoint())
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q", ErrInvalidConfig, cfg.Endpoint)
	}

	c := &Client{
		cfg:      cfg,
		host:     u.Host,
		http:     &http.Client{Timeout: defaultHTTPTimeout},
		cacheTTL: defaultCacheTTL,
		refTTL:   defaultMasterRefTTL,
		logger:   log.New("prismic"),
		observer: noopObserver{},
		tracer:   otel.Tracer("github.com/eringen/spacetraveling/prismic"),
	}
	c.cache, err = NewMemoryCache(32 << 20)
	if err != nil {
		return nil, fmt.Errorf("prismic: init cache: %w", err)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Host returns the repository host; cursors on other hosts are rejected.
func (c *Client) Host() string {
	return c.host
}

// MasterRef returns the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (ref string, err error) {
	ctx, done := c.begin(ctx, "masterRef")
	defer func() { done(err) }()
	return c.resolveMasterRef(ctx)
}

func (c *Client) resolveMasterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.masterRef != "" && time.Since(c.refFetched) < c.refTTL {
		ref := c.masterRef
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	q := url.Values{}
	q.Set("access_token", c.cfg.AccessToken)
	var api API
	if err := c.get(ctx, "masterRef", c.cfg.endpoint()+"?"+q.Encode(), &api, false); err != nil {
		return "", err
	}
	for _, r := range api.Refs {
		if r.IsMasterRef {
			c.mu.Lock()
			c.masterRef = r.Ref
			c.refFetched = time.Now()
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", newError("masterRef", ErrMalformed, 0, errors.New("no master ref in API response"))
}

// Query runs predicates against the repository and returns one page.
func (c *Client) Query(ctx context.Context, preds []Predicate, opts QueryOptions) (resp *Response, err error) {
	ctx, done := c.begin(ctx, "query")
	defer func() { done(err) }()
	return c.query(ctx, "query", preds, opts)
}

func (c *Client) query(ctx context.Context, op string, preds []Predicate, opts QueryOptions) (*Response, error) {
	ref := opts.Ref
	if ref == "" {
		var err error
		if ref, err = c.resolveMasterRef(ctx); err != nil {
			return nil, err
		}
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("prismic.ref", ref))

	var resp Response
	if err := c.get(ctx, op, c.searchURL(ref, preds, opts), &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) searchURL(ref string, preds []Predicate, opts QueryOptions) string {
	q := url.Values{}
	q.Set("ref", ref)
	if s := encodePredicates(preds); s != "" {
		q.Set("q", s)
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if len(opts.Orderings) > 0 {
		q.Set("orderings", "["+strings.Join(opts.Orderings, ",")+"]")
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	if opts.Lang != "" {
		q.Set("lang", opts.Lang)
	}
	q.Set("access_token", c.cfg.AccessToken)
	return c.cfg.endpoint() + "/documents/search?" + q.Encode()
}

// GetByUID fetches exactly one document of docType by its uid. It returns
// ErrNotFound when nothing matches; there is no placeholder result.
func (c *Client) GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (doc *Document, err error) {
	ctx, done := c.begin(ctx, "getByUID")
	defer func() { done(err) }()

	opts.PageSize = 1
	opts.Page = 0
	resp, err := c.query(ctx, "getByUID", []Predicate{At("my."+docType+".uid", uid)}, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, newError("getByUID", ErrNotFound, 0, fmt.Errorf("%s %q", docType, uid))
	}
	return &resp.Results[0], nil
}

// GetByID fetches one document by its repository id.
func (c *Client) GetByID(ctx context.Context, id string, opts QueryOptions) (doc *Document, err error) {
	ctx, done := c.begin(ctx, "getByID")
	defer func() { done(err) }()

	opts.PageSize = 1
	opts.Page = 0
	resp, err := c.query(ctx, "getByID", []Predicate{At("document.id", id)}, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, newError("getByID", ErrNotFound, 0, fmt.Errorf("id %q", id))
	}
	return &resp.Results[0], nil
}

// FetchPage GETs an opaque next-page cursor returned by a previous query.
// Only cursors on the repository host are followed.
func (c *Client) FetchPage(ctx context.Context, cursor string) (resp *Response, err error) {
	ctx, done := c.begin(ctx, "fetchPage")
	defer func() { done(err) }()

	u, err := c.checkCursor(cursor)
	if err != nil {
		return nil, err
	}
	var out Response
	if err := c.get(ctx, "fetchPage", u.String(), &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidCursor reports whether cursor could be passed to FetchPage.
func (c *Client) ValidCursor(cursor string) bool {
	_, err := c.checkCursor(cursor)
	return err == nil
}

func (c *Client) checkCursor(cursor string) (*url.URL, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return nil, newError("fetchPage", ErrMalformed, 0, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host != c.host {
		return nil, newError("fetchPage", ErrMalformed, 0, fmt.Errorf("cursor host %q not allowed", u.Host))
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		q.Set("access_token", c.cfg.AccessToken)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// begin starts a span for op and returns a func that records the outcome:
// metrics, span status, and a single log line on failure.
func (c *Client) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "prismic."+op, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, func(err error) {
		c.observer.Request(op, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Errorf("prismic: %s failed. Message: %s", op, err.Error())
		}
		span.End()
	}
}

func (c *Client) get(ctx context.Context, op, rawURL string, v any, cacheable bool) error {
	key := cacheKey(rawURL)
	if cacheable && c.cache != nil {
		if body, ok := c.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(body, v); err == nil {
				c.observer.CacheLookup(true)
				return nil
			}
		}
		c.observer.CacheLookup(false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return newError(op, ErrMalformed, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return newError(op, ErrTransport, 0, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return newError(op, ErrTransport, res.StatusCode, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newError(op, ErrTransport, res.StatusCode, apiMessage(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return newError(op, ErrMalformed, res.StatusCode, err)
	}
	if cacheable && c.cache != nil {
		c.cache.Set(ctx, key, body, c.cacheTTL)
	}
	return nil
}

// apiMessage extracts the repository's error message, if the body has one.
func apiMessage(body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return errors.New(payload.Message)
		}
		if payload.Error != "" {
			return errors.New(payload.Error)
		}
	}
	return nil
}

// cacheKey drops the access token so secrets never end up in cache keys.
func cacheKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Del("access_token")
	u.RawQuery = q.Encode()
	return u.String()
}
