package blog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/prismic/prismictest"
)

func rawPost() prismic.Document {
	return prismictest.Post("como-utilizar-hooks", prismictest.PostData{
		Title:    "Como utilizar Hooks",
		Subtitle: "Pensando em sincronização em vez de ciclos de vida",
		Author:   "Joseph Oliveira",
		Banner:   map[string]any{"url": "https://images.prismic.io/r/banner.png", "alt": "banner", "dimensions": map[string]int{"width": 1200, "height": 400}},
		Content: []prismictest.Section{
			{Heading: "Proin et varius", Body: []map[string]any{prismictest.Paragraph("Lorem ipsum dolor sit amet")}},
		},
		Extra: "ignored",
	})
}

func TestSummarizeKeepsOnlyListingFields(t *testing.T) {
	p, err := Summarize(rawPost())
	require.NoError(t, err)

	want := Post{
		UID:                  "como-utilizar-hooks",
		FirstPublicationDate: "2021-03-25T19:25:28+0000",
		Title:                "Como utilizar Hooks",
		Subtitle:             "Pensando em sincronização em vez de ciclos de vida",
		Author:               "Joseph Oliveira",
	}
	assert.Equal(t, want, p)
	assert.Empty(t, p.LastPublicationDate)
	assert.Empty(t, p.Content)
	assert.Zero(t, p.Banner)
}

func TestSummaryIsIdempotent(t *testing.T) {
	full, err := Detail(rawPost())
	require.NoError(t, err)

	once := full.Summary()
	assert.Equal(t, once, once.Summary())

	listed, err := Summarize(rawPost())
	require.NoError(t, err)
	assert.Equal(t, listed, once)
}

func TestDetail(t *testing.T) {
	p, err := Detail(rawPost())
	require.NoError(t, err)

	assert.Equal(t, "2021-03-25T19:27:35+0000", p.LastPublicationDate)
	assert.Equal(t, Banner{URL: "https://images.prismic.io/r/banner.png", Alt: "banner", Width: 1200, Height: 400}, p.Banner)
	require.Len(t, p.Content, 1)
	assert.Equal(t, "Proin et varius", p.Content[0].Heading)
	assert.Equal(t, "Lorem ipsum dolor sit amet", p.Content[0].Body.Text())
	assert.Equal(t, 1, p.ReadingTime())
}

func TestDetailWithoutContent(t *testing.T) {
	doc := prismictest.Post("empty", prismictest.PostData{Title: "Empty"})
	p, err := Detail(doc)
	require.NoError(t, err)
	assert.Nil(t, p.Content)
	assert.Equal(t, 0, p.ReadingTime())
}

func TestSummarizeMalformedData(t *testing.T) {
	doc := prismictest.Post("bad", prismictest.PostData{})
	doc.Data = json.RawMessage(`{"title": 42}`)
	_, err := Summarize(doc)
	assert.ErrorIs(t, err, prismic.ErrMalformed)
}

func TestSummarizePagePreservesOrder(t *testing.T) {
	docs := prismictest.FakePosts(4)
	page, err := SummarizePage(&prismic.Response{Results: docs, NextPage: "https://repo/next"})
	require.NoError(t, err)

	require.Len(t, page.Results, 4)
	for i, d := range docs {
		assert.Equal(t, d.UID, page.Results[i].UID)
	}
	assert.True(t, page.HasMore())
	assert.False(t, PostPagination{}.HasMore())
}
