package spacetraveling

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/eringen/spacetraveling/prismic"
)

// FallbackMode decides what an ungenerated post page shows while it is built.
type FallbackMode string

const (
	// FallbackTrue renders a loading page and generates in the background.
	FallbackTrue FallbackMode = "true"
	// FallbackBlocking waits for the page to be generated.
	FallbackBlocking FallbackMode = "blocking"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string // Site name (default "spacetraveling")
	URL         string `validate:"required,url"` // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD
	Locale      string // OpenGraph locale (default "pt_BR")

	Addr string // Listen address (default ":3000")

	PageSize    int           `validate:"min=1,max=100"` // Listing page size (default 20)
	StaticPaths int           `validate:"min=0"`         // Posts generated at startup (default 3)
	Revalidate  time.Duration `validate:"min=1s"`        // Page staleness window (default 30m)
	Fallback    FallbackMode  `validate:"oneof=true blocking"`

	AnalyticsEnabled      bool   // Record page views (default false)
	AnalyticsDatabasePath string // Analytics SQLite path (default "data/analytics.db")
	StatsToken            string // Bearer token for /api/stats

	SessionSecret string // Required for serve: preview session secret
	CookieSecure  bool   // Set true for HTTPS

	RedisURL     string   // Optional shared content cache
	SentryDSN    string   // Optional error reporting
	OTLPEndpoint string   // Optional trace exporter endpoint
	ImageHosts   []string // Hosts /_image/ may fetch from (default images.prismic.io)

	RateLimit float64 // Requests per second per IP on guarded routes (default 5)
	RateBurst int     // Burst size (default 20)
}

var validate = validator.New()

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Locale == "" {
		c.Locale = "pt_BR"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.PageSize == 0 {
		c.PageSize = 20
	}
	if c.StaticPaths == 0 {
		c.StaticPaths = 3
	}
	if c.Revalidate == 0 {
		c.Revalidate = 30 * time.Minute
	}
	if c.Fallback == "" {
		c.Fallback = FallbackTrue
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if len(c.ImageHosts) == 0 {
		c.ImageHosts = []string{"images.prismic.io"}
	}
	if c.RateLimit == 0 {
		c.RateLimit = 5
	}
	if c.RateBurst == 0 {
		c.RateBurst = 20
	}
}

// Validate checks the config after defaults have been applied.
func (c SiteConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("spacetraveling: invalid config: %w", err)
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithClientOptions passes extra options to the content client.
func WithClientOptions(opts ...prismic.Option) Option {
	return func(a *App) {
		a.clientOpts = append(a.clientOpts, opts...)
	}
}

// WithRedis shares the content response cache through rdb instead of
// connecting to SiteConfig.RedisURL.
func WithRedis(rdb *redis.Client) Option {
	return func(a *App) {
		a.redis = rdb
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("spacetraveling: required environment variable %s is not set", key)
	}
	return v
}

// EnvInt parses key as an int. Unset or invalid values give fallback.
func EnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

// EnvDuration parses key with time.ParseDuration. Unset or invalid values give fallback.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

// EnvBool parses key with strconv.ParseBool. Unset or invalid values give fallback.
func EnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

// EnvList splits key on commas, dropping empty entries.
func EnvList(key string) []string {
	return FilterEmpty(strings.Split(os.Getenv(key), ","))
}
