package spacetraveling

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/analytics"
	"github.com/eringen/spacetraveling/blog"
)

// fallbackRefresh is how often the fallback page reloads itself.
const fallbackRefresh = 1

func (a *App) listing(c echo.Context) (blog.PostPagination, bool, error) {
	ctx := c.Request().Context()
	if ref := PreviewRef(c); ref != "" {
		page, err := a.Content.FirstPage(ctx, ref)
		return page, true, err
	}
	page, err := a.Cache.Listing(ctx)
	return page, false, err
}

func (a *App) handleHome(c echo.Context) error {
	page, preview, err := a.listing(c)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(ListingPage{
		Meta:    a.homeMeta(),
		Posts:   page.Results,
		MoreURL: MoreURL(page.NextPage),
		Preview: preview,
	}))
}

// handleMore loads the page behind the cursor and renders it as a fragment:
// the new post cards followed by the next load-more control, if any.
func (a *App) handleMore(c echo.Context) error {
	cursor := c.QueryParam("page")
	if cursor == "" || !a.Content.ValidCursor(cursor) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid page cursor")
	}

	ctl := a.Content.Resume(cursor)
	posts, err := ctl.LoadMore(c.Request().Context())
	a.Metrics.LoadMore(err)
	if err != nil {
		c.Logger().Errorf("load more: %v", err)
		c.Response().Header().Set("Cache-Control", "no-store")
		return RenderStatus(c, http.StatusBadGateway, a.Views.LoadMoreError(MoreURL(cursor)))
	}
	return Render(c, a.Views.PostCards(posts, MoreURL(ctl.NextPage())))
}

func (a *App) handlePost(c echo.Context) error {
	uid := c.Param("uid")
	ctx := c.Request().Context()

	if ref := PreviewRef(c); ref != "" {
		post, err := a.Content.Post(ctx, uid, ref)
		if err != nil {
			return err
		}
		return a.renderPost(c, post, true)
	}

	if a.Config.Fallback == FallbackBlocking || analytics.IsBot(c.Request().UserAgent()) {
		if !a.Cache.Cached(uid) && !a.allowGeneration(c) {
			return errTooManyGenerations(c)
		}
		post, err := a.Cache.Post(ctx, uid)
		if err != nil {
			return err
		}
		return a.renderPost(c, post, false)
	}

	post, status, err := a.Cache.Lookup(uid)
	switch status {
	case StatusFresh, StatusStale:
		return a.renderPost(c, post, false)
	case StatusFailed:
		return err
	case StatusMissing:
		if !a.allowGeneration(c) {
			return errTooManyGenerations(c)
		}
		a.Cache.Generate(uid)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return Render(c, a.Views.Fallback(PageMeta{
		Title:   "Carregando... | " + a.Config.Name,
		URL:     BuildURL(a.Config.URL, "post", uid),
		OGType:  "article",
		Refresh: fallbackRefresh,
	}))
}

// allowGeneration charges the client for a page that has to be fetched
// from the repository. Cached pages and fallback polls are free.
func (a *App) allowGeneration(c echo.Context) bool {
	return a.limiter == nil || a.limiter.Allow(c.RealIP())
}

func errTooManyGenerations(c echo.Context) error {
	c.Response().Header().Set("Retry-After", "1")
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
}

func (a *App) renderPost(c echo.Context, post blog.Post, preview bool) error {
	return Render(c, a.Views.Post(PostPage{
		Meta:        a.postMeta(post),
		Post:        post,
		ReadingTime: post.ReadingTime(),
		Preview:     preview,
	}))
}

// allPosts walks every listing page of published content.
func (a *App) allPosts(ctx context.Context) ([]blog.Post, error) {
	first, err := a.Cache.Listing(ctx)
	if err != nil {
		return nil, err
	}
	ctl := a.Content.Pages(first)
	if err := ctl.Drain(ctx, func(int, []blog.Post, string) error { return nil }); err != nil {
		return nil, err
	}
	return ctl.Posts(), nil
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.allPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	page, err := a.Cache.Listing(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, page.Results)
}

func (a *App) handleRobots(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buildRobots(a.Config))
}
