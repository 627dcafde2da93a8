// Package views renders the site's pages as templ components.
package views

import (
	"bytes"
	"context"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
)

// writer is the body of a page or fragment.
type writer func(buf *bytes.Buffer)

func component(body writer) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		body(&buf)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func esc(s string) string {
	return html.EscapeString(s)
}

// layout wraps body in the full HTML document with the site header.
func layout(cfg spacetraveling.SiteConfig, meta spacetraveling.PageMeta, preview bool, body writer) templ.Component {
	return component(func(buf *bytes.Buffer) {
		buf.WriteString(`<!DOCTYPE html><html lang="` + esc(htmlLang(cfg.Locale)) + `"><head>`)
		buf.WriteString(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		writeHead(buf, cfg, meta)
		buf.WriteString(`<link rel="stylesheet" href="/public/styles.css">`)
		buf.WriteString(`<link rel="alternate" type="application/rss+xml" title="` + esc(cfg.Name) + `" href="/feed.xml">`)
		buf.WriteString(`<script src="/public/loadmore.js" defer></script>`)
		buf.WriteString(`</head><body>`)
		if preview {
			buf.WriteString(`<aside class="preview-banner">Modo de pré-visualização. <a href="/api/exit-preview/">Sair do modo preview</a></aside>`)
		}
		buf.WriteString(`<header class="site-header"><a href="/"><img src="/public/logo.svg" alt="logo"></a></header>`)
		body(buf)
		buf.WriteString(`</body></html>`)
	})
}

func writeHead(buf *bytes.Buffer, cfg spacetraveling.SiteConfig, meta spacetraveling.PageMeta) {
	title := meta.Title
	if title == "" {
		title = cfg.Name
	}
	buf.WriteString(`<title>` + esc(title) + `</title>`)
	if meta.Refresh > 0 {
		buf.WriteString(`<meta http-equiv="refresh" content="` + strconv.Itoa(meta.Refresh) + `">`)
		buf.WriteString(`<meta name="robots" content="noindex">`)
	}
	if meta.Description != "" {
		buf.WriteString(`<meta name="description" content="` + esc(meta.Description) + `">`)
		buf.WriteString(`<meta property="og:description" content="` + esc(meta.Description) + `">`)
	}
	if meta.URL != "" {
		buf.WriteString(`<link rel="canonical" href="` + esc(meta.URL) + `">`)
		buf.WriteString(`<meta property="og:url" content="` + esc(meta.URL) + `">`)
	}
	buf.WriteString(`<meta property="og:title" content="` + esc(title) + `">`)
	buf.WriteString(`<meta property="og:site_name" content="` + esc(cfg.Name) + `">`)
	if meta.OGType != "" {
		buf.WriteString(`<meta property="og:type" content="` + esc(meta.OGType) + `">`)
	}
	if meta.Image != "" {
		buf.WriteString(`<meta property="og:image" content="` + esc(meta.Image) + `">`)
	}
	// json.Marshal escapes <, > and &, so the payload cannot close the tag.
	if meta.JSONLD != "" {
		buf.WriteString(`<script type="application/ld+json">` + meta.JSONLD + `</script>`)
	}
}

// htmlLang turns a POSIX locale like pt_BR into a language tag.
func htmlLang(locale string) string {
	if locale == "" {
		return "pt-BR"
	}
	return strings.ReplaceAll(locale, "_", "-")
}
