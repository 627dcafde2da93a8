// Package blog holds the display-normalized post model, the reading time
// estimate and the listing pagination controller.
package blog

import (
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

// DocumentType is the repository document type posts are stored under.
const DocumentType = "post"

// ListingFields is the field projection used for listing queries.
var ListingFields = []string{"post.title", "post.subtitle", "post.author"}

// Post is a display-normalized post. Listing posts carry only UID,
// FirstPublicationDate, Title, Subtitle and Author; the remaining fields are
// filled for the detail view.
type Post struct {
	UID                  string    `json:"uid"`
	FirstPublicationDate string    `json:"first_publication_date"`
	LastPublicationDate  string    `json:"last_publication_date,omitempty"`
	Title                string    `json:"title"`
	Subtitle             string    `json:"subtitle"`
	Author               string    `json:"author"`
	Banner               Banner    `json:"banner,omitzero"`
	Content              []Section `json:"content,omitempty"`
}

// Banner is the post's header image.
type Banner struct {
	URL    string `json:"url,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Section is one titled group of rich text in a post body.
type Section struct {
	Heading string          `json:"heading,omitempty"`
	Body    richtext.Blocks `json:"body"`
}

// PostPagination is one page of listing posts. NextPage is empty exactly
// when there are no further pages.
type PostPagination struct {
	Results  []Post `json:"results"`
	NextPage string `json:"next_page,omitempty"`
}

// HasMore reports whether a further page can be loaded.
func (p PostPagination) HasMore() bool {
	return p.NextPage != ""
}

type postData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Banner   struct {
		URL        string `json:"url"`
		Alt        string `json:"alt"`
		Dimensions struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"dimensions"`
	} `json:"banner"`
	Content []Section `json:"content"`
}

// Summarize normalizes a raw record into a listing Post. Every repository
// field other than uid, first publication date, title, subtitle and author
// is dropped.
func Summarize(doc prismic.Document) (Post, error) {
	var data postData
	if err := doc.DecodeData(&data); err != nil {
		return Post{}, err
	}
	return Post{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
	}, nil
}

// Summary returns p reduced to its listing fields. Summary is idempotent.
func (p Post) Summary() Post {
	return Post{
		UID:                  p.UID,
		FirstPublicationDate: p.FirstPublicationDate,
		Title:                p.Title,
		Subtitle:             p.Subtitle,
		Author:               p.Author,
	}
}

// Detail normalizes a raw record into a full Post for the detail view.
func Detail(doc prismic.Document) (Post, error) {
	var data postData
	if err := doc.DecodeData(&data); err != nil {
		return Post{}, err
	}
	return Post{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		LastPublicationDate:  doc.LastPublicationDate,
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
		Banner: Banner{
			URL:    data.Banner.URL,
			Alt:    data.Banner.Alt,
			Width:  data.Banner.Dimensions.Width,
			Height: data.Banner.Dimensions.Height,
		},
		Content: data.Content,
	}, nil
}

// SummarizePage normalizes every record of a response, preserving order.
func SummarizePage(resp *prismic.Response) (PostPagination, error) {
	page := PostPagination{
		Results:  make([]Post, 0, len(resp.Results)),
		NextPage: resp.NextPage,
	}
	for _, doc := range resp.Results {
		p, err := Summarize(doc)
		if err != nil {
			return PostPagination{}, err
		}
		page.Results = append(page.Results, p)
	}
	return page, nil
}

// ReadingTime is the post's estimated minutes to read.
func (p Post) ReadingTime() int {
	return ReadingTime(p.Content)
}
