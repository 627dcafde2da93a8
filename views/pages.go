package views

import (
	"bytes"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/blog"
	"github.com/eringen/spacetraveling/richtext"
)

// bannerWidth is the width requested from the image endpoint for banners.
const bannerWidth = 1440

type site struct {
	cfg   spacetraveling.SiteConfig
	image func(src string, width int) string
}

// Funcs returns the views for the live server. Banners go through the
// image endpoint.
func Funcs(cfg spacetraveling.SiteConfig) spacetraveling.ViewFuncs {
	return site{cfg: cfg, image: spacetraveling.ImageURL}.funcs()
}

// StaticFuncs returns the views for a static export, where there is no
// image endpoint and banners link to the repository's CDN directly.
func StaticFuncs(cfg spacetraveling.SiteConfig) spacetraveling.ViewFuncs {
	return site{cfg: cfg, image: func(src string, _ int) string { return src }}.funcs()
}

func (s site) funcs() spacetraveling.ViewFuncs {
	return spacetraveling.ViewFuncs{
		Home:          s.home,
		PostCards:     s.postCards,
		LoadMoreError: s.loadMoreError,
		Post:          s.post,
		Fallback:      s.fallback,
		NotFound:      s.notFound,
		ServerError:   s.serverError,
	}
}

func (s site) home(page spacetraveling.ListingPage) templ.Component {
	return layout(s.cfg, page.Meta, page.Preview, func(buf *bytes.Buffer) {
		buf.WriteString(`<main class="posts">`)
		if len(page.Posts) == 0 {
			buf.WriteString(`<p class="empty">Nenhum post publicado ainda.</p>`)
		}
		writeCards(buf, page.Posts, page.MoreURL)
		buf.WriteString(`</main>`)
	})
}

// postCards is the load-more fragment: the new cards and the next control.
func (s site) postCards(posts []blog.Post, moreURL string) templ.Component {
	return component(func(buf *bytes.Buffer) {
		writeCards(buf, posts, moreURL)
	})
}

func writeCards(buf *bytes.Buffer, posts []blog.Post, moreURL string) {
	for _, p := range posts {
		buf.WriteString(`<article class="post-card"><a href="` + esc(spacetraveling.PostPath(p.UID)) + `">`)
		buf.WriteString(`<h2>` + esc(p.Title) + `</h2>`)
		if p.Subtitle != "" {
			buf.WriteString(`<p>` + esc(p.Subtitle) + `</p>`)
		}
		buf.WriteString(`<ul class="info">`)
		writeDate(buf, p.FirstPublicationDate)
		buf.WriteString(`<li class="author">` + esc(p.Author) + `</li>`)
		buf.WriteString(`</ul></a></article>`)
	}
	if moreURL != "" {
		buf.WriteString(`<div class="load-more" data-load-more-container>`)
		buf.WriteString(`<a data-load-more href="` + esc(moreURL) + `">Carregar mais posts</a>`)
		buf.WriteString(`</div>`)
	}
}

func writeDate(buf *bytes.Buffer, ts string) {
	buf.WriteString(`<li class="date"><time datetime="` + esc(isoDate(ts)) + `">` + esc(FormatDate(ts)) + `</time></li>`)
}

func (s site) loadMoreError(retryURL string) templ.Component {
	return component(func(buf *bytes.Buffer) {
		buf.WriteString(`<div class="load-more load-more-error" data-load-more-container role="alert">`)
		buf.WriteString(`<span>Não foi possível carregar mais posts.</span> `)
		buf.WriteString(`<a data-load-more href="` + esc(retryURL) + `">Tentar novamente</a>`)
		buf.WriteString(`</div>`)
	})
}

func (s site) post(page spacetraveling.PostPage) templ.Component {
	p := page.Post
	return layout(s.cfg, page.Meta, page.Preview, func(buf *bytes.Buffer) {
		buf.WriteString(`<main class="post">`)
		if p.Banner.URL != "" {
			buf.WriteString(`<img class="banner" src="` + esc(s.image(p.Banner.URL, bannerWidth)) + `" alt="` + esc(p.Banner.Alt) + `">`)
		}
		buf.WriteString(`<article><h1>` + esc(p.Title) + `</h1><ul class="info">`)
		writeDate(buf, p.FirstPublicationDate)
		buf.WriteString(`<li class="author">` + esc(p.Author) + `</li>`)
		buf.WriteString(`<li class="reading-time">` + esc(FormatReadingTime(page.ReadingTime)) + `</li></ul>`)
		if edited := FormatEdited(p.FirstPublicationDate, p.LastPublicationDate); edited != "" {
			buf.WriteString(`<p class="edited">` + esc(edited) + `</p>`)
		}
		for _, section := range p.Content {
			buf.WriteString(`<section>`)
			if section.Heading != "" {
				buf.WriteString(`<h2>` + esc(section.Heading) + `</h2>`)
			}
			richtext.RenderHTML(buf, section.Body, richtext.DefaultResolver)
			buf.WriteString(`</section>`)
		}
		buf.WriteString(`</article></main>`)
	})
}

// fallback stands in for a post that is still being generated.
func (s site) fallback(meta spacetraveling.PageMeta) templ.Component {
	return layout(s.cfg, meta, false, func(buf *bytes.Buffer) {
		buf.WriteString(`<main class="post loading"><p aria-live="polite">Carregando...</p></main>`)
	})
}

func (s site) notFound() templ.Component {
	meta := spacetraveling.PageMeta{Title: "Página não encontrada | " + s.cfg.Name}
	return layout(s.cfg, meta, false, func(buf *bytes.Buffer) {
		buf.WriteString(`<main class="error"><h1>404</h1><p>Página não encontrada.</p><a href="/">Voltar para o início</a></main>`)
	})
}

func (s site) serverError() templ.Component {
	meta := spacetraveling.PageMeta{Title: "Erro | " + s.cfg.Name}
	return layout(s.cfg, meta, false, func(buf *bytes.Buffer) {
		buf.WriteString(`<main class="error"><h1>Algo deu errado</h1><p>Tente novamente em instantes.</p><a href="/">Voltar para o início</a></main>`)
	})
}
