// Package richtext models structured rich text as stored by the content
// repository and renders it as HTML (a templ component) or plain text.
package richtext

import "strings"

// Block types.
const (
	Heading1     = "heading1"
	Heading2     = "heading2"
	Heading3     = "heading3"
	Heading4     = "heading4"
	Heading5     = "heading5"
	Heading6     = "heading6"
	Paragraph    = "paragraph"
	Preformatted = "preformatted"
	ListItem     = "list-item"
	OListItem    = "o-list-item"
	Image        = "image"
	Embed        = "embed"
)

// Span types.
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
	Label     = "label"
)

// Block is one element of a rich text field.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	Spans      []Span      `json:"spans,omitempty"`
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	LinkTo     *Link       `json:"linkTo,omitempty"`
	Oembed     *Oembed     `json:"oembed,omitempty"`
}

// Span marks up Text[Start:End]. Offsets count UTF-16 code units.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries a hyperlink target or a label name.
type SpanData struct {
	Link
	Label string `json:"label,omitempty"`
}

// Link is a web, media or document link.
type Link struct {
	LinkType string `json:"link_type,omitempty"` // Web, Document, Media
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Dimensions of an image block.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Oembed is the provider payload of an embed block.
type Oembed struct {
	Type         string `json:"type"`
	EmbedURL     string `json:"embed_url"`
	ProviderName string `json:"provider_name"`
	HTML         string `json:"html"`
}

// Blocks is a rich text field.
type Blocks []Block

// AsText joins the text of every block with sep. Image and embed blocks
// carry no text and contribute empty strings.
func AsText(blocks []Block, sep string) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, sep)
}

// Text is AsText with a single space separator.
func (b Blocks) Text() string {
	return AsText(b, " ")
}
