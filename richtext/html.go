package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// LinkResolver turns a document link into a site path.
type LinkResolver func(Link) string

// DefaultResolver sends post documents to /post/<uid>/ and everything else home.
func DefaultResolver(l Link) string {
	if l.Type == "post" && l.UID != "" {
		return "/post/" + url.PathEscape(l.UID) + "/"
	}
	return "/"
}

// HTML returns a templ.Component that renders blocks as HTML.
func HTML(blocks []Block, resolve LinkResolver) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderHTML(&buf, blocks, resolve)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// AsHTML renders blocks to a string.
func AsHTML(blocks []Block, resolve LinkResolver) string {
	var buf bytes.Buffer
	RenderHTML(&buf, blocks, resolve)
	return buf.String()
}

// RenderHTML writes the HTML representation of blocks to buf.
// Consecutive list items are grouped into a single list.
func RenderHTML(buf *bytes.Buffer, blocks []Block, resolve LinkResolver) {
	if resolve == nil {
		resolve = DefaultResolver
	}
	inList := false
	inOrderedList := false

	flushList := func() {
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
	}
	flushOrderedList := func() {
		if inOrderedList {
			buf.WriteString("</ol>")
			inOrderedList = false
		}
	}

	for _, b := range blocks {
		switch b.Type {
		case ListItem:
			flushOrderedList()
			if !inList {
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(b.Text, b.Spans, resolve))
			buf.WriteString("</li>")
			continue
		case OListItem:
			flushList()
			if !inOrderedList {
				buf.WriteString("<ol>")
				inOrderedList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(b.Text, b.Spans, resolve))
			buf.WriteString("</li>")
			continue
		}
		flushList()
		flushOrderedList()

		switch b.Type {
		case Heading1, Heading2, Heading3, Heading4, Heading5, Heading6:
			tag := "h" + b.Type[len(b.Type)-1:]
			buf.WriteString("<" + tag + ">")
			buf.WriteString(FormatSpans(b.Text, b.Spans, resolve))
			buf.WriteString("</" + tag + ">")
		case Paragraph:
			buf.WriteString("<p>")
			buf.WriteString(FormatSpans(b.Text, b.Spans, resolve))
			buf.WriteString("</p>")
		case Preformatted:
			buf.WriteString("<pre>")
			buf.WriteString(html.EscapeString(b.Text))
			buf.WriteString("</pre>")
		case Image:
			writeImage(buf, b, resolve)
		case Embed:
			writeEmbed(buf, b)
		}
	}
	flushList()
	flushOrderedList()
}

func writeImage(buf *bytes.Buffer, b Block, resolve LinkResolver) {
	src := SafeURL(b.URL)
	if src == "" {
		return
	}
	img := `<img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `"`
	if b.Dimensions != nil && b.Dimensions.Width > 0 {
		img += ` width="` + strconv.Itoa(b.Dimensions.Width) + `" height="` + strconv.Itoa(b.Dimensions.Height) + `"`
	}
	img += ` loading="lazy" decoding="async"/>`
	buf.WriteString(`<p class="block-img">`)
	if b.LinkTo != nil {
		if href := linkHref(*b.LinkTo, resolve); href != "" {
			img = `<a href="` + href + `">` + img + `</a>`
		}
	}
	buf.WriteString(img)
	buf.WriteString("</p>")
}

// writeEmbed passes the provider's HTML through; embed markup comes from
// repository editors, not from site visitors.
func writeEmbed(buf *bytes.Buffer, b Block) {
	if b.Oembed == nil {
		return
	}
	buf.WriteString(`<div data-oembed="` + html.EscapeString(b.Oembed.EmbedURL) +
		`" data-oembed-type="` + html.EscapeString(b.Oembed.Type) +
		`" data-oembed-provider="` + html.EscapeString(b.Oembed.ProviderName) + `">`)
	buf.WriteString(b.Oembed.HTML)
	buf.WriteString("</div>")
}

func linkHref(l Link, resolve LinkResolver) string {
	if l.LinkType == "Document" {
		return html.EscapeString(resolve(l))
	}
	return SafeURL(l.URL)
}

// FormatSpans applies spans to text and returns escaped HTML. Overlapping
// spans are closed and reopened so the output is always well nested.
func FormatSpans(text string, spans []Span, resolve LinkResolver) string {
	if resolve == nil {
		resolve = DefaultResolver
	}
	units := utf16.Encode([]rune(text))
	n := len(units)

	bounds := map[int]struct{}{0: {}, n: {}}
	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > n || s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
		bounds[s.Start] = struct{}{}
		bounds[s.End] = struct{}{}
	}
	if len(valid) == 0 {
		return escapeText(text)
	}
	// Outer spans first: earlier start, then later end.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})
	points := make([]int, 0, len(bounds))
	for p := range bounds {
		points = append(points, p)
	}
	sort.Ints(points)

	var out strings.Builder
	var open []int // indexes into valid
	for i := 0; i+1 < len(points); i++ {
		from, to := points[i], points[i+1]
		var active []int
		for idx, s := range valid {
			if s.Start <= from && s.End >= to {
				active = append(active, idx)
			}
		}
		common := 0
		for common < len(open) && common < len(active) && open[common] == active[common] {
			common++
		}
		for j := len(open) - 1; j >= common; j-- {
			out.WriteString(closeTag(valid[open[j]]))
		}
		for _, idx := range active[common:] {
			out.WriteString(openTag(valid[idx], resolve))
		}
		open = active
		out.WriteString(escapeText(string(utf16.Decode(units[from:to]))))
	}
	for j := len(open) - 1; j >= 0; j-- {
		out.WriteString(closeTag(valid[open[j]]))
	}
	return out.String()
}

func openTag(s Span, resolve LinkResolver) string {
	switch s.Type {
	case Strong:
		return "<strong>"
	case Em:
		return "<em>"
	case Hyperlink:
		href := ""
		target := ""
		if s.Data != nil {
			href = linkHref(s.Data.Link, resolve)
			if s.Data.Target != "" {
				target = ` target="` + html.EscapeString(s.Data.Target) + `" rel="noopener noreferrer"`
			}
		}
		return `<a href="` + href + `"` + target + `>`
	case Label:
		label := ""
		if s.Data != nil {
			label = s.Data.Label
		}
		return `<span class="` + html.EscapeString(label) + `">`
	default:
		return "<span>"
	}
}

func closeTag(s Span) string {
	switch s.Type {
	case Strong:
		return "</strong>"
	case Em:
		return "</em>"
	case Hyperlink:
		return "</a>"
	default:
		return "</span>"
	}
}

func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br/>")
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
