package blog

import (
	"context"
	"errors"
	"sync"

	"github.com/eringen/spacetraveling/prismic"
)

var (
	// ErrNoMorePages is returned by LoadMore when there is no cursor.
	ErrNoMorePages = errors.New("blog: no more pages")
	// ErrInFlight is returned by LoadMore while another load is running.
	ErrInFlight = errors.New("blog: load already in flight")
	// ErrStale is returned when the controller was reseeded during a load;
	// the response was discarded.
	ErrStale = errors.New("blog: response discarded after reseed")
)

// State is the controller's load state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// PageFetcher fetches the raw page behind an opaque next-page cursor.
// *prismic.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (*prismic.Response, error)
}

// Controller owns one listing session: an append-only list of posts and
// the cursor of the next page.
type Controller struct {
	fetcher PageFetcher

	mu         sync.Mutex
	posts      []Post
	nextPage   string
	inFlight   bool
	generation uint64
	state      State
	err        error
}

// NewController returns an empty controller; call Seed before LoadMore.
func NewController(fetcher PageFetcher) *Controller {
	return &Controller{fetcher: fetcher}
}

// Resume returns a controller positioned at cursor with no posts shown yet.
// Used when the earlier posts live on the client.
func Resume(fetcher PageFetcher, cursor string) *Controller {
	c := NewController(fetcher)
	c.Seed(PostPagination{NextPage: cursor})
	return c
}

// Seed overwrites the session state wholesale with p. Any load still in
// flight is discarded when it completes.
func (c *Controller) Seed(p PostPagination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append([]Post(nil), p.Results...)
	c.nextPage = p.NextPage
	c.generation++
	c.inFlight = false
	c.state = StateIdle
	c.err = nil
}

// LoadMore fetches the next page, appends its posts in order and advances
// the cursor. It returns the appended posts. On failure the posts and the
// cursor are left unchanged and the controller enters StateFailed.
func (c *Controller) LoadMore(ctx context.Context) ([]Post, error) {
	c.mu.Lock()
	if c.nextPage == "" {
		c.mu.Unlock()
		return nil, ErrNoMorePages
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	c.inFlight = true
	c.state = StateLoading
	cursor := c.nextPage
	gen := c.generation
	c.mu.Unlock()

	page, err := c.fetch(ctx, cursor)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil, ErrStale
	}
	c.inFlight = false
	if err != nil {
		c.state = StateFailed
		c.err = err
		return nil, err
	}
	c.posts = append(c.posts, page.Results...)
	c.nextPage = page.NextPage
	c.state = StateIdle
	c.err = nil
	return page.Results, nil
}

func (c *Controller) fetch(ctx context.Context, cursor string) (PostPagination, error) {
	resp, err := c.fetcher.FetchPage(ctx, cursor)
	if err != nil {
		return PostPagination{}, err
	}
	return SummarizePage(resp)
}

// Drain loads pages until none remain, passing each appended batch and its
// 1-based page number (the seeded page is page 1) to fn.
func (c *Controller) Drain(ctx context.Context, fn func(page int, posts []Post, nextPage string) error) error {
	for page := 2; c.HasMore(); page++ {
		posts, err := c.LoadMore(ctx)
		if err != nil {
			return err
		}
		if err := fn(page, posts, c.NextPage()); err != nil {
			return err
		}
	}
	return nil
}

// Posts returns a copy of every post shown so far, in order.
func (c *Controller) Posts() []Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Post(nil), c.posts...)
}

// NextPage returns the current cursor, or "" when exhausted.
func (c *Controller) NextPage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextPage
}

// HasMore reports whether the load-more control should be offered.
func (c *Controller) HasMore() bool {
	return c.NextPage() != ""
}

// State returns the current load state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the cause of the last failed load, if the controller is in
// StateFailed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
