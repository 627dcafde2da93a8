package richtext

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatSpansPlain(t *testing.T) {
	got := FormatSpans("a < b & c", nil, nil)
	want := "a &lt; b &amp; c"
	if got != want {
		t.Errorf("FormatSpans = %q, want %q", got, want)
	}
}

func TestFormatSpansLineBreaks(t *testing.T) {
	got := FormatSpans("one\ntwo", nil, nil)
	if got != "one<br/>two" {
		t.Errorf("FormatSpans = %q, want line break", got)
	}
}

func TestFormatSpansStrongEm(t *testing.T) {
	tests := []struct {
		text  string
		spans []Span
		want  string
	}{
		{"bold text", []Span{{Start: 0, End: 4, Type: Strong}}, "<strong>bold</strong> text"},
		{"an em word", []Span{{Start: 3, End: 5, Type: Em}}, "an <em>em</em> word"},
		{
			"nested words",
			[]Span{{Start: 0, End: 12, Type: Strong}, {Start: 7, End: 12, Type: Em}},
			"<strong>nested <em>words</em></strong>",
		},
	}
	for _, tt := range tests {
		got := FormatSpans(tt.text, tt.spans, nil)
		if got != tt.want {
			t.Errorf("FormatSpans(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestFormatSpansOverlapIsWellNested(t *testing.T) {
	spans := []Span{{Start: 0, End: 5, Type: Strong}, {Start: 3, End: 8, Type: Em}}
	got := FormatSpans("abcdefgh", spans, nil)
	want := "<strong>abc<em>de</em></strong><em>fgh</em>"
	if got != want {
		t.Errorf("FormatSpans = %q, want %q", got, want)
	}
}

func TestFormatSpansUTF16Offsets(t *testing.T) {
	// "🚀" is two UTF-16 code units, so "go" starts at offset 3.
	got := FormatSpans("🚀 go", []Span{{Start: 3, End: 5, Type: Strong}}, nil)
	want := "🚀 <strong>go</strong>"
	if got != want {
		t.Errorf("FormatSpans = %q, want %q", got, want)
	}
}

func TestFormatSpansIgnoresInvalidRanges(t *testing.T) {
	got := FormatSpans("short", []Span{{Start: 2, End: 99, Type: Strong}, {Start: 3, End: 1, Type: Em}}, nil)
	if got != "short" {
		t.Errorf("FormatSpans = %q, want plain text", got)
	}
}

func TestFormatSpansHyperlinks(t *testing.T) {
	web := Span{Start: 0, End: 4, Type: Hyperlink, Data: &SpanData{Link: Link{LinkType: "Web", URL: "https://go.dev", Target: "_blank"}}}
	got := FormatSpans("docs here", []Span{web}, nil)
	want := `<a href="https://go.dev" target="_blank" rel="noopener noreferrer">docs</a> here`
	if got != want {
		t.Errorf("web link = %q, want %q", got, want)
	}

	doc := Span{Start: 0, End: 4, Type: Hyperlink, Data: &SpanData{Link: Link{LinkType: "Document", Type: "post", UID: "hello"}}}
	got = FormatSpans("next", []Span{doc}, nil)
	if got != `<a href="/post/hello/">next</a>` {
		t.Errorf("document link = %q", got)
	}

	bad := Span{Start: 0, End: 4, Type: Hyperlink, Data: &SpanData{Link: Link{LinkType: "Web", URL: "javascript:alert(1)"}}}
	got = FormatSpans("evil", []Span{bad}, nil)
	if strings.Contains(got, "javascript") {
		t.Errorf("unsafe link not stripped: %q", got)
	}
}

func TestRenderHTMLLists(t *testing.T) {
	blocks := []Block{
		{Type: ListItem, Text: "a"},
		{Type: ListItem, Text: "b"},
		{Type: OListItem, Text: "one"},
		{Type: Paragraph, Text: "after"},
	}
	got := AsHTML(blocks, nil)
	want := "<ul><li>a</li><li>b</li></ul><ol><li>one</li></ol><p>after</p>"
	if got != want {
		t.Errorf("AsHTML = %q, want %q", got, want)
	}
}

func TestRenderHTMLHeadingsAndPre(t *testing.T) {
	blocks := []Block{
		{Type: Heading2, Text: "Title"},
		{Type: Preformatted, Text: "x := <-ch"},
	}
	got := AsHTML(blocks, nil)
	want := "<h2>Title</h2><pre>x := &lt;-ch</pre>"
	if got != want {
		t.Errorf("AsHTML = %q, want %q", got, want)
	}
}

func TestRenderHTMLImage(t *testing.T) {
	blocks := []Block{{Type: Image, URL: "https://images.prismic.io/r/a.png", Alt: `"x"`, Dimensions: &Dimensions{Width: 10, Height: 5}}}
	got := AsHTML(blocks, nil)
	if !strings.Contains(got, `src="https://images.prismic.io/r/a.png"`) || !strings.Contains(got, `width="10" height="5"`) {
		t.Errorf("image block = %q", got)
	}
	if !strings.Contains(got, `alt="&#34;x&#34;"`) {
		t.Errorf("alt not escaped: %q", got)
	}
	if AsHTML([]Block{{Type: Image, URL: "data:text/html,x"}}, nil) != "" {
		t.Error("unsafe image source should be dropped")
	}
}

func TestRenderHTMLEmbed(t *testing.T) {
	blocks := []Block{{Type: Embed, Oembed: &Oembed{Type: "video", EmbedURL: "https://youtu.be/x", ProviderName: "YouTube", HTML: "<iframe></iframe>"}}}
	got := AsHTML(blocks, nil)
	if !strings.Contains(got, `data-oembed="https://youtu.be/x"`) || !strings.Contains(got, "<iframe></iframe>") {
		t.Errorf("embed block = %q", got)
	}
}

func TestHTMLComponent(t *testing.T) {
	var buf bytes.Buffer
	err := HTML([]Block{{Type: Paragraph, Text: "hi"}}, nil).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.String() != "<p>hi</p>" {
		t.Errorf("Render = %q", buf.String())
	}
}

func TestAsText(t *testing.T) {
	blocks := Blocks{
		{Type: Paragraph, Text: "hello world"},
		{Type: Image, URL: "https://x/y.png"},
		{Type: Paragraph, Text: "foo bar"},
	}
	if got := blocks.Text(); got != "hello world  foo bar" {
		t.Errorf("Text = %q", got)
	}
	if got := AsText(nil, " "); got != "" {
		t.Errorf("AsText(nil) = %q", got)
	}
}

func TestDecodeRepositoryJSON(t *testing.T) {
	raw := `[{"type":"paragraph","text":"Read the docs","spans":[{"start":9,"end":13,"type":"hyperlink","data":{"link_type":"Web","url":"https://go.dev"}}]}]`
	var blocks Blocks
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got := AsHTML(blocks, nil)
	want := `<p>Read the <a href="https://go.dev">docs</a></p>`
	if got != want {
		t.Errorf("AsHTML = %q, want %q", got, want)
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/a?b=c&d=e", "https://example.com/a?b=c&amp;d=e"},
		{"/local", "/local"},
		{"#frag", "#frag"},
		{"mailto:a@b.c", "mailto:a@b.c"},
		{"javascript:alert(1)", ""},
		{"relative/path", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.in); got != tt.want {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSpansNilResolverMatchesRenderHTML(t *testing.T) {
	doc := Span{Start: 4, End: 8, Type: Hyperlink, Data: &SpanData{Link: Link{LinkType: "Document", Type: "post", UID: "hooks"}}}
	spans := []Span{doc}

	got := FormatSpans("see next", spans, nil)
	if got != `see <a href="/post/hooks/">next</a>` {
		t.Errorf("FormatSpans = %q", got)
	}
	block := AsHTML([]Block{{Type: Paragraph, Text: "see next", Spans: spans}}, nil)
	if block != "<p>"+got+"</p>" {
		t.Errorf("AsHTML = %q, want paragraph around %q", block, got)
	}
}
