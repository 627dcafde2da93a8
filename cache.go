package spacetraveling

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetraveling/blog"
)

// Source is what PageCache generates pages from. *Content implements it.
type Source interface {
	FirstPage(ctx context.Context, ref string) (blog.PostPagination, error)
	Post(ctx context.Context, uid, ref string) (blog.Post, error)
}

// CacheStatus describes a post page as seen by Lookup.
type CacheStatus int

const (
	StatusMissing CacheStatus = iota // never generated
	StatusPending                    // generation running, nothing to serve yet
	StatusFresh                      // inside the staleness window
	StatusStale                      // served while being regenerated
	StatusFailed                     // last generation failed and nothing is cached
)

func (s CacheStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	case StatusFailed:
		return "failed"
	default:
		return "missing"
	}
}

const (
	listingKey        = "listing"
	generationTimeout = 30 * time.Second
	maxFailed         = 1024
)

type entry[T any] struct {
	value     T
	generated time.Time
}

// PageCache holds generated pages for the staleness window. A stale page is
// still served while one background regeneration per page refreshes it; a
// failed regeneration keeps the stale page. Published content only: preview
// requests bypass the cache.
type PageCache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	// OnGenerate, when set, is called after every generation.
	OnGenerate func(kind string, d time.Duration, err error)
	// Logf, when set, receives background generation failures.
	Logf func(format string, args ...any)

	group singleflight.Group
	wg    sync.WaitGroup

	mu      sync.RWMutex
	listing *entry[blog.PostPagination]
	posts   map[string]*entry[blog.Post]
	pending map[string]bool
	failed  map[string]error
}

// NewPageCache creates a PageCache over src with the given staleness window.
func NewPageCache(src Source, ttl time.Duration) *PageCache {
	return &PageCache{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		posts:   make(map[string]*entry[blog.Post]),
		pending: make(map[string]bool),
		failed:  make(map[string]error),
	}
}

func postKey(uid string) string { return "post:" + uid }

func (c *PageCache) stale(generated time.Time) bool {
	return c.now().Sub(generated) >= c.ttl
}

// Listing returns the first listing page.
func (c *PageCache) Listing(ctx context.Context) (blog.PostPagination, error) {
	c.mu.RLock()
	e := c.listing
	c.mu.RUnlock()
	if e != nil {
		if c.stale(e.generated) {
			c.regenerate(listingKey, c.loadListing)
		}
		return e.value, nil
	}
	v, err := c.shared(ctx, listingKey, c.loadListing)
	if err != nil {
		return blog.PostPagination{}, err
	}
	return v.(blog.PostPagination), nil
}

// Post returns the post page for uid, generating it synchronously on a miss.
func (c *PageCache) Post(ctx context.Context, uid string) (blog.Post, error) {
	c.mu.RLock()
	e := c.posts[uid]
	c.mu.RUnlock()
	if e != nil {
		if c.stale(e.generated) {
			c.Generate(uid)
		}
		return e.value, nil
	}
	v, err := c.shared(ctx, postKey(uid), func(ctx context.Context) (any, error) {
		return c.loadPost(ctx, uid)
	})
	if err != nil {
		return blog.Post{}, err
	}
	return v.(blog.Post), nil
}

// Cached reports whether a page for uid is held, fresh or stale.
func (c *PageCache) Cached(uid string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.posts[uid]
	return ok
}

// Lookup reports what is cached for uid without blocking. A stale hit
// starts a regeneration. A StatusFailed result is reported once; the next
// Lookup sees StatusMissing so the page can be retried.
func (c *PageCache) Lookup(uid string) (blog.Post, CacheStatus, error) {
	c.mu.Lock()
	if e, ok := c.posts[uid]; ok {
		c.mu.Unlock()
		if c.stale(e.generated) {
			c.Generate(uid)
			return e.value, StatusStale, nil
		}
		return e.value, StatusFresh, nil
	}
	if c.pending[postKey(uid)] {
		c.mu.Unlock()
		return blog.Post{}, StatusPending, nil
	}
	if err, ok := c.failed[uid]; ok {
		delete(c.failed, uid)
		c.mu.Unlock()
		return blog.Post{}, StatusFailed, err
	}
	c.mu.Unlock()
	return blog.Post{}, StatusMissing, nil
}

// shared runs load once for every concurrent caller of key. The load is
// detached from ctx so one caller going away cannot fail the others; ctx
// only bounds how long this caller waits.
func (c *PageCache) shared(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generationTimeout)
		defer cancel()
		return load(ctx)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Generate starts a background generation of uid unless one is running.
func (c *PageCache) Generate(uid string) {
	c.regenerate(postKey(uid), func(ctx context.Context) (any, error) {
		return c.loadPost(ctx, uid)
	})
}

func (c *PageCache) regenerate(key string, load func(context.Context) (any, error)) {
	c.mu.Lock()
	if c.pending[key] {
		c.mu.Unlock()
		return
	}
	c.pending[key] = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
		defer cancel()

		_, err, _ := c.group.Do(key, func() (any, error) { return load(ctx) })

		c.mu.Lock()
		delete(c.pending, key)
		if err != nil {
			if uid, ok := cutPostKey(key); ok {
				if _, cached := c.posts[uid]; !cached {
					c.recordFailure(uid, err)
				}
			}
		}
		c.mu.Unlock()

		if err != nil && c.Logf != nil {
			c.Logf("regenerate %s: %v", key, err)
		}
	}()
}

// recordFailure remembers err for the next Lookup of uid. Failures are
// usually unknown uids, so at most maxFailed are kept. Caller holds c.mu.
func (c *PageCache) recordFailure(uid string, err error) {
	if _, ok := c.failed[uid]; !ok && len(c.failed) >= maxFailed {
		for k := range c.failed {
			delete(c.failed, k)
			break
		}
	}
	c.failed[uid] = err
}

func cutPostKey(key string) (string, bool) {
	return strings.CutPrefix(key, "post:")
}

func (c *PageCache) loadListing(ctx context.Context) (any, error) {
	start := time.Now()
	page, err := c.src.FirstPage(ctx, "")
	c.observe("listing", start, err)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.listing = &entry[blog.PostPagination]{value: page, generated: c.now()}
	c.mu.Unlock()
	return page, nil
}

func (c *PageCache) loadPost(ctx context.Context, uid string) (any, error) {
	start := time.Now()
	post, err := c.src.Post(ctx, uid, "")
	c.observe("post", start, err)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.posts[uid] = &entry[blog.Post]{value: post, generated: c.now()}
	delete(c.failed, uid)
	c.mu.Unlock()
	return post, nil
}

func (c *PageCache) observe(kind string, start time.Time, err error) {
	if c.OnGenerate != nil {
		c.OnGenerate(kind, time.Since(start), err)
	}
}

// Warm generates the listing and the given posts up front. Failures are
// collected; pages that did generate stay cached.
func (c *PageCache) Warm(ctx context.Context, uids []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	var mu sync.Mutex
	var errs []error
	collect := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	g.Go(func() error {
		_, err := c.Listing(ctx)
		collect(err)
		return nil
	})
	for _, uid := range uids {
		g.Go(func() error {
			_, err := c.Post(ctx, uid)
			collect(err)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Invalidate clears every cached page so the next read regenerates.
func (c *PageCache) Invalidate() {
	c.mu.Lock()
	c.listing = nil
	c.posts = make(map[string]*entry[blog.Post])
	c.failed = make(map[string]error)
	c.mu.Unlock()
}

// Wait blocks until running background generations finish.
func (c *PageCache) Wait() {
	c.wg.Wait()
}
