package spacetraveling

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/eringen/spacetraveling/blog"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PostPath is the site path of the post with uid.
func PostPath(uid string) string {
	return "/post/" + url.PathEscape(uid) + "/"
}

// MoreURL is the server load-more endpoint for cursor, or "" when there is
// nothing more to load. The repository access token never reaches the page;
// the client adds it back when the cursor is followed.
func MoreURL(cursor string) string {
	if cursor == "" {
		return ""
	}
	return "/posts/more/?page=" + url.QueryEscape(publicCursor(cursor))
}

func publicCursor(cursor string) string {
	u, err := url.Parse(cursor)
	if err != nil {
		return cursor
	}
	q := u.Query()
	if !q.Has("access_token") {
		return cursor
	}
	q.Del("access_token")
	u.RawQuery = q.Encode()
	return u.String()
}

// exportMoreURL is the static fragment holding listing page n.
func exportMoreURL(n int) string {
	return "/page/" + strconv.Itoa(n) + "/"
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
		"inLanguage":  strings.ReplaceAll(cfg.Locale, "_", "-"),
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post blog.Post, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "post", post.UID)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Subtitle,
		"datePublished": isoDate(post.FirstPublicationDate),
		"url":           postURL,
		"timeRequired":  "PT" + strconv.Itoa(post.ReadingTime()) + "M",
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if d := isoDate(post.LastPublicationDate); d != "" {
		data["dateModified"] = d
	}
	if post.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  post.Author,
		}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	if post.Banner.URL != "" {
		data["image"] = post.Banner.URL
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (a *App) homeMeta() PageMeta {
	return PageMeta{
		Title:       a.Config.Name,
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL),
		OGType:      "website",
		JSONLD:      WebsiteJsonLD(a.Config),
	}
}

func (a *App) postMeta(post blog.Post) PageMeta {
	return PageMeta{
		Title:       post.Title + " | " + a.Config.Name,
		Description: post.Subtitle,
		URL:         BuildURL(a.Config.URL, "post", post.UID),
		OGType:      "article",
		Image:       post.Banner.URL,
		JSONLD:      BlogPostingJsonLD(post, a.Config),
	}
}
