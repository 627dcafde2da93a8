package spacetraveling

import (
	"encoding/json"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/blog"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://blog.example.com", nil, "https://blog.example.com"},
		{"https://blog.example.com", []string{"post", "hooks"}, "https://blog.example.com/post/hooks/"},
		{"https://blog.example.com/", []string{"post", "hooks"}, "https://blog.example.com/post/hooks/"},
		{"https://example.com/blog", []string{"post", "a"}, "https://example.com/blog/post/a/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildURL(tt.base, tt.segs...))
	}
}

func TestPostPathEscapes(t *testing.T) {
	assert.Equal(t, "/post/hooks/", PostPath("hooks"))
	assert.Equal(t, "/post/a%2Fb/", PostPath("a/b"))
}

func TestFilterEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, FilterEmpty([]string{" a ", "", "  ", "b"}))
	assert.Nil(t, FilterEmpty(nil))
}

func TestBlogPostingJsonLD(t *testing.T) {
	cfg := SiteConfig{Name: "spacetraveling", URL: "https://blog.example.com"}
	post := blog.Post{
		UID:                  "hooks",
		FirstPublicationDate: "2021-03-25T19:25:28+0000",
		LastPublicationDate:  "2021-03-26T10:00:00+0000",
		Title:                "Como utilizar Hooks",
		Subtitle:             "Pensando em sincronização",
		Author:               "Joseph Oliveira",
	}

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(BlogPostingJsonLD(post, cfg)), &got))
	assert.Equal(t, "BlogPosting", got["@type"])
	assert.Equal(t, "https://blog.example.com/post/hooks/", got["url"])
	assert.Equal(t, "2021-03-25T19:25:28Z", got["datePublished"])
	assert.Equal(t, "2021-03-26T10:00:00Z", got["dateModified"])
	assert.Equal(t, "PT0M", got["timeRequired"])
}

func TestBuildRSS(t *testing.T) {
	cfg := SiteConfig{Name: "spacetraveling", URL: "https://blog.example.com", Locale: "pt_BR"}
	posts := []blog.Post{
		{UID: "a", Title: "A & B", FirstPublicationDate: "2021-03-25T19:25:28+0000"},
		{UID: "b", Title: "B", FirstPublicationDate: "bad"},
	}
	body, err := buildRSS(cfg, posts)
	require.NoError(t, err)

	var feed rssXML
	require.NoError(t, xml.Unmarshal(body, &feed))
	assert.Equal(t, "2.0", feed.Version)
	assert.Equal(t, "pt-br", feed.Channel.Language)
	require.Len(t, feed.Channel.Items, 2)
	assert.Equal(t, "A & B", feed.Channel.Items[0].Title)
	assert.Equal(t, "https://blog.example.com/post/a/", feed.Channel.Items[0].Link)
	assert.Equal(t, "Thu, 25 Mar 2021 19:25:28 +0000", feed.Channel.Items[0].PubDate)
	assert.Empty(t, feed.Channel.Items[1].PubDate)
}

func TestBuildSitemap(t *testing.T) {
	cfg := SiteConfig{URL: "https://blog.example.com/"}
	body, err := buildSitemap(cfg, []blog.Post{{UID: "a", FirstPublicationDate: "2021-03-25T19:25:28+0000"}})
	require.NoError(t, err)

	var set sitemapURLSet
	require.NoError(t, xml.Unmarshal(body, &set))
	require.Len(t, set.URLs, 2)
	assert.Equal(t, "https://blog.example.com/", set.URLs[0].Loc)
	assert.Equal(t, "https://blog.example.com/post/a/", set.URLs[1].Loc)
	assert.Equal(t, "2021-03-25T19:25:28Z", set.URLs[1].LastMod)

	assert.Contains(t, string(buildRobots(cfg)), "Sitemap: https://blog.example.com/sitemap.xml\n")
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 3, cfg.StaticPaths)
	assert.Equal(t, FallbackTrue, cfg.Fallback)
	assert.Equal(t, []string{"images.prismic.io"}, cfg.ImageHosts)
	require.NoError(t, cfg.Validate())

	cfg.PageSize = 500
	assert.Error(t, cfg.Validate())

	cfg.PageSize = 20
	cfg.URL = "not a url"
	assert.Error(t, cfg.Validate())
}
