package spacetraveling

import (
	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/blog"
)

// ViewFuncs holds the templ components the app calls when rendering pages.
// The app owns data loading and routing; the views own all markup.
type ViewFuncs struct {
	Home          func(page ListingPage) templ.Component
	PostCards     func(posts []blog.Post, moreURL string) templ.Component
	LoadMoreError func(retryURL string) templ.Component
	Post          func(page PostPage) templ.Component
	Fallback      func(meta PageMeta) templ.Component
	NotFound      func() templ.Component
	ServerError   func() templ.Component
}

// ListingPage is the data behind the home page.
type ListingPage struct {
	Meta    PageMeta
	Posts   []blog.Post
	MoreURL string // load-more target; empty hides the control
	Preview bool
}

// PostPage is the data behind a post page.
type PostPage struct {
	Meta        PageMeta
	Post        blog.Post
	ReadingTime int // minutes
	Preview     bool
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	JSONLD      string
	Refresh     int // seconds; non-zero makes the page reload itself
}
