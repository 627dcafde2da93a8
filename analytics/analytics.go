// Package analytics records blog page views without cookies. Readers are
// known only by salted hashes; raw IPs never reach the database.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

const saltSetting = "hash_salt"

var salt struct {
	once  sync.Once
	value string
}

// InitSalt loads the installation salt from store, creating it on first
// run. Call it before serving requests.
func InitSalt(store *Store) error {
	var initErr error
	salt.once.Do(func() {
		initErr = loadSalt(store)
	})
	return initErr
}

func loadSalt(store *Store) error {
	s, err := store.GetSetting(saltSetting)
	if err != nil {
		return fmt.Errorf("read hash salt: %w", err)
	}
	if s == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
		s = hex.EncodeToString(b)
		if err := store.SetSetting(saltSetting, s); err != nil {
			return fmt.Errorf("store hash salt: %w", err)
		}
	}
	salt.value = s
	return nil
}

// Visit is one reader viewing one page of the blog.
type Visit struct {
	ID        int64     `json:"-"`
	VisitorID string    `json:"visitor_id"` // hash of salt, IP and user agent
	SessionID string    `json:"session_id"` // VisitorID scoped to a UTC day
	IPHash    string    `json:"-"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	Path      string    `json:"path"`     // listing or /post/<uid>/
	Referrer  string    `json:"referrer"` // source label, see CleanReferrer
	Timestamp time.Time `json:"timestamp"`
}

// BotVisit is a crawler fetching a page. Crawlers are kept apart so they
// don't inflate reader counts.
type BotVisit struct {
	ID        int64     `json:"-"`
	BotName   string    `json:"bot_name"`
	IPHash    string    `json:"-"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is the dashboard payload for one period.
type Stats struct {
	Period         string            `json:"period"`
	UniqueVisitors int               `json:"unique_visitors"`
	TotalViews     int               `json:"total_views"`
	TopPages       []PageStat        `json:"top_pages"`
	LatestPages    []LatestPageVisit `json:"latest_pages"`
	BrowserStats   []DimensionStat   `json:"browsers"`
	OSStats        []DimensionStat   `json:"os"`
	DeviceStats    []DimensionStat   `json:"devices"`
	ReferrerStats  []DimensionStat   `json:"referrers"`
	DailyViews     []DailyView       `json:"daily_views"`
	BotVisits      int               `json:"bot_visits"`
	TopBots        []DimensionStat   `json:"top_bots"`
}

type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

type LatestPageVisit struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Browser   string `json:"browser"`
}

// DimensionStat counts views for one value of a dimension such as browser.
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailyView counts views in one bucket. Date is a day or an hour.
type DailyView struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

func saltedHash(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(salt.value))
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// HashIP returns a short salted hash of ip.
func HashIP(ip string) string {
	return saltedHash(ip)
}

// GenerateVisitorID identifies a reader by IP and user agent.
func GenerateVisitorID(ip, userAgent string) string {
	return saltedHash(ip, userAgent)
}

// rule maps the first matching user agent token to a label.
type rule struct {
	tokens []string
	label  string
}

func match(ua string, rules []rule, fallback string) string {
	for _, r := range rules {
		for _, tok := range r.tokens {
			if strings.Contains(ua, tok) {
				return r.label
			}
		}
	}
	return fallback
}

// Rule order matters: Edge and Opera send "chrome", Chrome sends "safari",
// Android sends "linux" and iPad sends "mobile".
var (
	browserRules = []rule{
		{[]string{"firefox"}, "Firefox"},
		{[]string{"opera", "opr"}, "Opera"},
		{[]string{"edg"}, "Edge"},
		{[]string{"chrome"}, "Chrome"},
		{[]string{"safari"}, "Safari"},
	}
	osRules = []rule{
		{[]string{"windows"}, "Windows"},
		{[]string{"android"}, "Android"},
		{[]string{"iphone", "ipad"}, "iOS"},
		{[]string{"macintosh", "mac os"}, "macOS"},
		{[]string{"linux"}, "Linux"},
	}
	deviceRules = []rule{
		{[]string{"tablet", "ipad"}, "Tablet"},
		{[]string{"mobile"}, "Mobile"},
	}
)

// ParseUserAgent classifies ua into browser, OS and device labels.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)
	return match(ua, browserRules, "Other"), match(ua, osRules, "Other"), match(ua, deviceRules, "Desktop")
}

// botRules name well known crawlers before the generic words.
var botRules = []rule{
	{[]string{"googlebot"}, "Googlebot"},
	{[]string{"bingbot"}, "Bingbot"},
	{[]string{"yandex"}, "Yandex"},
	{[]string{"baidu"}, "Baidu"},
	{[]string{"duckduckbot"}, "DuckDuckBot"},
	{[]string{"facebookexternalhit"}, "Facebook"},
	{[]string{"twitterbot"}, "Twitterbot"},
	{[]string{"linkedinbot"}, "LinkedIn"},
	{[]string{"ahrefsbot"}, "Ahrefs"},
	{[]string{"semrushbot"}, "SEMrush"},
	{[]string{"mj12bot"}, "Majestic"},
	{[]string{"dotbot"}, "Moz"},
	{[]string{"slurp"}, "Yahoo Slurp"},
	{[]string{"crawler", "crawl"}, "Generic Crawler"},
	{[]string{"spider"}, "Generic Spider"},
	{[]string{"scrape"}, "Scraper"},
	{[]string{"bot"}, "Other Bot"},
}

const notABot = "Unknown"

// IsBot reports whether ua looks like a crawler. Crawlers get post pages
// rendered in full instead of the fallback page.
func IsBot(ua string) bool {
	return ExtractBotName(ua) != notABot
}

// ExtractBotName names the crawler behind ua, or "Unknown".
func ExtractBotName(ua string) string {
	return match(strings.ToLower(ua), botRules, notABot)
}

var referrerSources = []rule{
	{[]string{"google."}, "Google"},
	{[]string{"bing."}, "Bing"},
	{[]string{"duckduckgo."}, "DuckDuckGo"},
	{[]string{"yahoo."}, "Yahoo"},
	{[]string{"github."}, "GitHub"},
}

// CleanReferrer reduces a referrer to a source label: a search engine,
// the bare host, "Direct" when empty or "Other" when it has no host.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	if src := match(strings.ToLower(ref), referrerSources, ""); src != "" {
		return src
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "Other"
	}
	return strings.TrimPrefix(u.Host, "www.")
}
