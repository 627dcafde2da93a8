package spacetraveling

import (
	"context"
	"fmt"

	"github.com/eringen/spacetraveling/blog"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = prismic.ErrNotFound

// Content loads posts from the content repository. An empty ref reads
// published content; a preview ref reads the draft behind it.
type Content struct {
	client   *prismic.Client
	pageSize int
}

// NewContent wraps client. pageSize is the listing page size.
func NewContent(client *prismic.Client, pageSize int) *Content {
	return &Content{client: client, pageSize: pageSize}
}

// Client returns the underlying repository client.
func (c *Content) Client() *prismic.Client {
	return c.client
}

// FirstPage returns the first listing page, normalized for display.
func (c *Content) FirstPage(ctx context.Context, ref string) (blog.PostPagination, error) {
	resp, err := c.client.Query(ctx,
		[]prismic.Predicate{prismic.DocumentType(blog.DocumentType)},
		prismic.QueryOptions{
			Fetch:    blog.ListingFields,
			PageSize: c.pageSize,
			Ref:      ref,
		})
	if err != nil {
		return blog.PostPagination{}, fmt.Errorf("spacetraveling: first page: %w", err)
	}
	page, err := blog.SummarizePage(resp)
	if err != nil {
		return blog.PostPagination{}, fmt.Errorf("spacetraveling: first page: %w", err)
	}
	return page, nil
}

// Post returns the full post with uid. A missing uid gives ErrNotFound.
func (c *Content) Post(ctx context.Context, uid, ref string) (blog.Post, error) {
	doc, err := c.client.GetByUID(ctx, blog.DocumentType, uid, prismic.QueryOptions{Ref: ref})
	if err != nil {
		return blog.Post{}, fmt.Errorf("spacetraveling: post %q: %w", uid, err)
	}
	post, err := blog.Detail(*doc)
	if err != nil {
		return blog.Post{}, fmt.Errorf("spacetraveling: post %q: %w", uid, err)
	}
	return post, nil
}

// StaticUIDs returns the uids of the first n listed posts.
func (c *Content) StaticUIDs(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	resp, err := c.client.Query(ctx,
		[]prismic.Predicate{prismic.DocumentType(blog.DocumentType)},
		prismic.QueryOptions{Fetch: blog.ListingFields, PageSize: n})
	if err != nil {
		return nil, fmt.Errorf("spacetraveling: static paths: %w", err)
	}
	uids := make([]string, 0, len(resp.Results))
	for _, d := range resp.Results {
		uids = append(uids, d.UID)
	}
	return uids, nil
}

// ResolvePreview finds where the previewed document lives on the site.
// Without a document id the preview starts at the home page.
func (c *Content) ResolvePreview(ctx context.Context, ref, documentID string) (string, error) {
	if documentID == "" {
		return "/", nil
	}
	doc, err := c.client.GetByID(ctx, documentID, prismic.QueryOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("spacetraveling: resolve preview: %w", err)
	}
	return richtext.DefaultResolver(richtext.Link{
		LinkType: "Document",
		ID:       doc.ID,
		UID:      doc.UID,
		Type:     doc.Type,
	}), nil
}

// Pages returns a pagination controller seeded with first.
func (c *Content) Pages(first blog.PostPagination) *blog.Controller {
	ctl := blog.NewController(c.client)
	ctl.Seed(first)
	return ctl
}

// Resume returns a pagination controller positioned at cursor.
func (c *Content) Resume(cursor string) *blog.Controller {
	return blog.Resume(c.client, cursor)
}

// ValidCursor reports whether cursor points at the content repository.
func (c *Content) ValidCursor(cursor string) bool {
	return c.client.ValidCursor(cursor)
}
