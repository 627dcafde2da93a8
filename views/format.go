package views

import (
	"strconv"
	"time"

	"github.com/goodsign/monday"

	"github.com/eringen/spacetraveling/prismic"
)

const (
	dateLayout = "02 Jan 2006"
	timeLayout = "15:04"
)

// locale is the display locale for every date on the site.
var locale monday.Locale = monday.LocalePtBR

// FormatDate renders a repository timestamp as "15 mar 2021". Unparseable
// input is returned unchanged.
func FormatDate(ts string) string {
	t, err := prismic.ParseTime(ts)
	if err != nil {
		return ts
	}
	return monday.Format(t, dateLayout, locale)
}

// FormatEdited renders the "edited at" line shown under a post's header, or
// "" when the post was never edited after its first publication.
func FormatEdited(first, last string) string {
	if last == "" || last == first {
		return ""
	}
	t, err := prismic.ParseTime(last)
	if err != nil {
		return ""
	}
	return "* editado em " + monday.Format(t, dateLayout, locale) + ", às " + t.Format(timeLayout)
}

// FormatReadingTime renders minutes as "4 min".
func FormatReadingTime(minutes int) string {
	return strconv.Itoa(minutes) + " min"
}

// isoDate is used for <time datetime>.
func isoDate(ts string) string {
	t, err := prismic.ParseTime(ts)
	if err != nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
