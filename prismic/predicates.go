package prismic

import (
	"strconv"
	"strings"
)

// Predicate is a single query clause in the repository's predicate syntax.
type Predicate string

// At matches documents where path equals value exactly.
func At(path, value string) Predicate {
	return Predicate("[at(" + path + "," + strconv.Quote(value) + ")]")
}

// Any matches documents where path equals one of values.
func Any(path string, values ...string) Predicate {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return Predicate("[any(" + path + ",[" + strings.Join(quoted, ",") + "])]")
}

// FullText matches documents whose path contains text.
func FullText(path, text string) Predicate {
	return Predicate("[fulltext(" + path + "," + strconv.Quote(text) + ")]")
}

// DocumentType is shorthand for At("document.type", t).
func DocumentType(t string) Predicate {
	return At("document.type", t)
}

// encodePredicates renders predicates as the q parameter: [[...][...]].
func encodePredicates(preds []Predicate) string {
	if len(preds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, p := range preds {
		b.WriteString(string(p))
	}
	b.WriteByte(']')
	return b.String()
}
