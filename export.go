package spacetraveling

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/blog"
)

// exportConcurrency bounds parallel post generation during Export.
const exportConcurrency = 8

// ExportReport summarizes an Export run.
type ExportReport struct {
	Pages int // listing pages, including the first
	Posts int
	Files int
}

// Export renders the whole published site into dir as static files:
// index.html, one fragment per further listing page under page/<n>/, one
// page per post under post/<uid>/, plus sitemap.xml, feed.xml, robots.txt
// and public/loadmore.js.
func (a *App) Export(ctx context.Context, dir string) (ExportReport, error) {
	var report ExportReport
	if err := a.initContent(ctx); err != nil {
		return report, err
	}
	var files atomic.Int64
	write := func(rel string, body []byte) error {
		if err := writeFile(dir, rel, body); err != nil {
			return err
		}
		files.Add(1)
		return nil
	}
	render := func(rel string, cmp templ.Component) error {
		var buf bytes.Buffer
		if err := cmp.Render(ctx, &buf); err != nil {
			return fmt.Errorf("spacetraveling: render %s: %w", rel, err)
		}
		return write(rel, buf.Bytes())
	}

	first, err := a.Content.FirstPage(ctx, "")
	if err != nil {
		return report, err
	}
	more := ""
	if first.HasMore() {
		more = exportMoreURL(2)
	}
	if err := render("index.html", a.Views.Home(ListingPage{
		Meta:    a.homeMeta(),
		Posts:   first.Results,
		MoreURL: more,
	})); err != nil {
		return report, err
	}
	report.Pages = 1

	ctl := a.Content.Pages(first)
	err = ctl.Drain(ctx, func(page int, posts []blog.Post, next string) error {
		more := ""
		if next != "" {
			more = exportMoreURL(page + 1)
		}
		report.Pages++
		return render(filepath.Join("page", fmt.Sprint(page), "index.html"), a.Views.PostCards(posts, more))
	})
	if err != nil {
		return report, err
	}

	posts := ctl.Posts()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for _, p := range posts {
		g.Go(func() error {
			post, err := a.Content.Post(gctx, p.UID, "")
			if err != nil {
				return err
			}
			return render(filepath.Join("post", p.UID, "index.html"), a.Views.Post(PostPage{
				Meta:        a.postMeta(post),
				Post:        post,
				ReadingTime: post.ReadingTime(),
			}))
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Posts = len(posts)

	sitemap, err := buildSitemap(a.Config, posts)
	if err != nil {
		return report, err
	}
	feed, err := buildRSS(a.Config, first.Results)
	if err != nil {
		return report, err
	}
	js, err := fs.ReadFile(EmbeddedAssets, "embedded/loadmore.js")
	if err != nil {
		return report, err
	}
	for rel, body := range map[string][]byte{
		"sitemap.xml":        sitemap,
		"feed.xml":           feed,
		"robots.txt":         buildRobots(a.Config),
		"public/loadmore.js": js,
	} {
		if err := write(rel, body); err != nil {
			return report, err
		}
	}

	report.Files = int(files.Load())
	a.Echo.Logger.Infof("exported %d pages and %d posts to %s", report.Pages, report.Posts, dir)
	return report, nil
}

// writeFile writes body to dir/rel, refusing paths that escape dir.
func writeFile(dir, rel string, body []byte) error {
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("spacetraveling: refusing to write %q outside export dir", rel)
	}
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("spacetraveling: create dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("spacetraveling: write %s: %w", rel, err)
	}
	return nil
}
