package prismictest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/eringen/spacetraveling/prismic"
)

// PostData is the data shape of a "post" document.
type PostData struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	Author   string         `json:"author"`
	Banner   map[string]any `json:"banner,omitempty"`
	Content  []Section      `json:"content,omitempty"`
	Extra    string         `json:"extra,omitempty"`
}

// Section is one heading plus rich text body group.
type Section struct {
	Heading string           `json:"heading"`
	Body    []map[string]any `json:"body"`
}

// Paragraph builds a plain paragraph block.
func Paragraph(text string) map[string]any {
	return map[string]any{"type": "paragraph", "text": text, "spans": []any{}}
}

// Post builds a post document with uid and data.
func Post(uid string, data PostData) prismic.Document {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return prismic.Document{
		ID:                   "id-" + uid,
		UID:                  uid,
		Type:                 "post",
		Href:                 "https://example.invalid/" + uid,
		Lang:                 "pt-br",
		FirstPublicationDate: "2021-03-25T19:25:28+0000",
		LastPublicationDate:  "2021-03-25T19:27:35+0000",
		Data:                 raw,
	}
}

// FakePosts builds n posts with random text, newest first.
func FakePosts(n int) []prismic.Document {
	docs := make([]prismic.Document, n)
	base := time.Date(2021, 3, 25, 19, 0, 0, 0, time.UTC)
	for i := range docs {
		doc := Post(fmt.Sprintf("post-%03d", i+1), PostData{
			Title:    words(4),
			Subtitle: words(8),
			Author:   gofakeit.Name(),
			Banner:   map[string]any{"url": "https://images.prismic.io/repo/banner.png", "alt": ""},
			Content: []Section{{
				Heading: words(3),
				Body:    []map[string]any{Paragraph(words(gofakeit.Number(20, 60)))},
			}},
			Extra: "not part of a post",
		})
		doc.FirstPublicationDate = base.Add(-time.Duration(i) * time.Hour).Format(prismic.TimeLayout)
		docs[i] = doc
	}
	return docs
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = gofakeit.Word()
	}
	return strings.Join(w, " ")
}
