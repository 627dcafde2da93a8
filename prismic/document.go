package prismic

import (
	"encoding/json"
	"time"
)

// TimeLayout is the timestamp format used by the repository, e.g.
// "2021-03-25T19:25:28+0000".
const TimeLayout = "2006-01-02T15:04:05-0700"

// Document is a raw repository document. Data is left undecoded; each
// document type decodes it into its own shape.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href"`
	Tags                 []string        `json:"tags"`
	Lang                 string          `json:"lang"`
	FirstPublicationDate string          `json:"first_publication_date"`
	LastPublicationDate  string          `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// DecodeData unmarshals the document's data field into v.
func (d *Document) DecodeData(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return newError("decode "+d.Type, ErrMalformed, 0, err)
	}
	return nil
}

// Response is one page of query results. NextPage is empty on the last page.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         string     `json:"next_page"`
	PrevPage         string     `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Ref is a content release pointer; the master ref is the published content.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// API is the subset of the repository root document the client needs.
type API struct {
	Refs []Ref `json:"refs"`
}

// ParseTime parses a repository timestamp. It accepts RFC 3339 as well.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
