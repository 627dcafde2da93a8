package prismic

import "testing"

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		got  Predicate
		want string
	}{
		{"at", At("document.type", "post"), `[at(document.type,"post")]`},
		{"document type", DocumentType("post"), `[at(document.type,"post")]`},
		{"any", Any("document.tags", "go", "web"), `[any(document.tags,["go","web"])]`},
		{"fulltext", FullText("document", "space"), `[fulltext(document,"space")]`},
		{"quotes escaped", At("my.post.uid", `a"b`), `[at(my.post.uid,"a\"b")]`},
	}
	for _, tt := range tests {
		if string(tt.got) != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, tt.got, tt.want)
		}
	}
}

func TestEncodePredicates(t *testing.T) {
	if got := encodePredicates(nil); got != "" {
		t.Errorf("encodePredicates(nil) = %q, want empty", got)
	}
	got := encodePredicates([]Predicate{DocumentType("post"), At("my.post.uid", "x")})
	want := `[[at(document.type,"post")][at(my.post.uid,"x")]]`
	if got != want {
		t.Errorf("encodePredicates = %q, want %q", got, want)
	}
}
