package blog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eringen/spacetraveling/richtext"
)

func paragraph(text string) richtext.Block {
	return richtext.Block{Type: richtext.Paragraph, Text: text}
}

func TestReadingTimeExample(t *testing.T) {
	content := []Section{{
		Heading: "Intro",
		Body:    richtext.Blocks{paragraph("hello world foo bar")},
	}}
	assert.Equal(t, 5, WordCount(content))
	assert.Equal(t, 1, ReadingTime(content))
}

func TestReadingTimeEmpty(t *testing.T) {
	assert.Equal(t, 0, ReadingTime(nil))
	assert.Equal(t, 0, ReadingTime([]Section{}))
	assert.Equal(t, 0, WordCount(nil))
}

func TestReadingTimeSectionsWithoutHeadings(t *testing.T) {
	content := []Section{
		{Body: richtext.Blocks{paragraph("one two"), paragraph("three")}},
		{Heading: "", Body: richtext.Blocks{paragraph("four")}},
	}
	assert.Equal(t, 4, WordCount(content))
}

func TestReadingTimeCeiling(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{1, 1},
		{199, 1},
		{200, 1},
		{201, 2},
		{400, 2},
		{401, 3},
	}
	for _, tt := range tests {
		content := []Section{{Body: richtext.Blocks{paragraph(strings.TrimSpace(strings.Repeat("word ", tt.words)))}}}
		assert.Equal(t, tt.want, ReadingTime(content), "words=%d", tt.words)
	}
}

func TestWordCountWhitespace(t *testing.T) {
	content := []Section{{
		Heading: "  Two   words ",
		Body: richtext.Blocks{
			paragraph("tabs\tand\nnewlines"),
			{Type: richtext.Image, URL: "https://x/y.png"},
			paragraph("  "),
		},
	}}
	// 3 body words + 2 heading words; the image and blank block add nothing.
	assert.Equal(t, 5, WordCount(content))
}

func TestWordCountJoinsBlocksAcrossSections(t *testing.T) {
	content := []Section{
		{Heading: "A", Body: richtext.Blocks{paragraph("end")}},
		{Heading: "B", Body: richtext.Blocks{paragraph("start")}},
	}
	// "end start" must not fuse into one token.
	assert.Equal(t, 4, WordCount(content))
}

func TestPostReadingTime(t *testing.T) {
	p := Post{Content: []Section{{Heading: "Intro", Body: richtext.Blocks{paragraph("hello world foo bar")}}}}
	assert.Equal(t, 1, p.ReadingTime())
	assert.Equal(t, 0, Post{}.ReadingTime())
}
