package blog

import (
	"strings"

	"github.com/eringen/spacetraveling/richtext"
)

// WordsPerMinute is the fixed reading speed behind ReadingTime.
const WordsPerMinute = 200

// WordCount counts the words of every section: body text of all blocks,
// joined and split on whitespace, plus the words of non-empty headings.
func WordCount(content []Section) int {
	if len(content) == 0 {
		return 0
	}
	var body []richtext.Block
	headingWords := 0
	for _, s := range content {
		body = append(body, s.Body...)
		if s.Heading != "" {
			headingWords += len(strings.Fields(s.Heading))
		}
	}
	return len(strings.Fields(richtext.AsText(body, " "))) + headingWords
}

// ReadingTime returns ceil(WordCount/WordsPerMinute). Empty content reads
// in zero minutes.
func ReadingTime(content []Section) int {
	words := WordCount(content)
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
