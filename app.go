// Package spacetraveling is a blog front-end over a Prismic-style headless
// content repository. It serves a paginated listing with a load-more
// control and post pages with a reading time, and can export the whole site
// as static files.
//
// Views are supplied through the ViewFuncs struct; the app owns content
// loading, page caching, routing and middleware.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/eringen/spacetraveling/analytics"
	"github.com/eringen/spacetraveling/prismic"
)

// App is the central application. It wires together the content client,
// page cache, handlers, middleware, and user-provided templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Content *Content
	Cache   *PageCache
	Views   ViewFuncs
	Metrics *Metrics

	repo           prismic.Config
	clientOpts     []prismic.Option
	redis          *redis.Client
	limiter        *RateLimiter
	images         *ImageOptimizer
	analyticsStore *analytics.Store
	customRoutes   []func(*App)
	staticDir      string
	sentry         bool
	closers        []func()
	contentReady   bool
	serverReady    bool
}

// New creates a new App for the content repository described by repo.
func New(cfg SiteConfig, repo prismic.Config, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		repo:      repo,
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(log.INFO)

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// initContent builds the content client, page cache and metrics. It is all
// that Export needs.
func (a *App) initContent(ctx context.Context) error {
	if a.contentReady {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	a.Metrics = NewMetrics()

	opts := []prismic.Option{
		prismic.WithLogger(a.Echo.Logger),
		prismic.WithObserver(a.Metrics),
	}
	if a.redis == nil && a.Config.RedisURL != "" {
		redisOpts, err := redis.ParseURL(a.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("spacetraveling: parse redis url: %w", err)
		}
		a.redis = redis.NewClient(redisOpts)
		rdb := a.redis
		a.closers = append(a.closers, func() { rdb.Close() })
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("spacetraveling: redis: %w", err)
		}
		opts = append(opts, prismic.WithCache(prismic.NewRedisCache(a.redis, "spacetraveling:content:")))
	}
	opts = append(opts, a.clientOpts...)

	client, err := prismic.NewClient(a.repo, opts...)
	if err != nil {
		return fmt.Errorf("spacetraveling: content client: %w", err)
	}
	a.Content = NewContent(client, a.Config.PageSize)

	a.Cache = NewPageCache(a.Content, a.Config.Revalidate)
	a.Cache.OnGenerate = a.Metrics.PageGenerated
	a.Cache.Logf = a.Echo.Logger.Errorf

	a.contentReady = true
	return nil
}

// Init prepares everything Start serves: content, telemetry, analytics,
// middleware and routes. Tests call it and drive a.Echo directly.
func (a *App) Init(ctx context.Context) error {
	if a.serverReady {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("spacetraveling: SessionSecret is required")
	}
	if err := a.initContent(ctx); err != nil {
		return err
	}

	if a.Config.OTLPEndpoint != "" {
		shutdown, err := setupTracing(ctx, a.Config.OTLPEndpoint)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		})
	}
	if a.Config.SentryDSN != "" {
		flush, err := setupSentry(a.Config.SentryDSN, EnvOr("SENTRY_ENVIRONMENT", "production"))
		if err != nil {
			return err
		}
		a.sentry = true
		a.closers = append(a.closers, flush)
	}

	a.limiter = NewRateLimiter(a.Config.RateLimit, a.Config.RateBurst, 10*time.Minute)
	a.closers = append(a.closers, a.limiter.Close)

	imageCache, err := prismic.NewMemoryCache(64 << 20)
	if err != nil {
		return fmt.Errorf("spacetraveling: image cache: %w", err)
	}
	a.closers = append(a.closers, imageCache.Close)
	a.images = NewImageOptimizer(a.Config.ImageHosts, imageCache)

	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("spacetraveling: init analytics: %w", err)
		}
		a.analyticsStore = store
		a.closers = append(a.closers, func() { store.Close() })
		if err := analytics.InitSalt(store); err != nil {
			return fmt.Errorf("spacetraveling: init analytics salt: %w", err)
		}
		stopCleanup := store.StartCleanupScheduler(365, 24*time.Hour, a.Echo.Logger.Errorf)
		a.closers = append(a.closers, stopCleanup)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.serverReady = true
	return nil
}

// Start initializes the app, generates the static paths and starts the server.
func (a *App) Start() error {
	ctx := context.Background()
	if err := a.Init(ctx); err != nil {
		return err
	}

	uids, err := a.Content.StaticUIDs(ctx, a.Config.StaticPaths)
	if err != nil {
		return err
	}
	if err := a.Cache.Warm(ctx, uids); err != nil {
		a.Echo.Logger.Warnf("warm page cache: %v", err)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	a.Close()
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets first, then the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/loadmore.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.Static("/public", a.staticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", a.Metrics.Handler())

	e.GET("/", a.handleHome)
	e.GET("/posts/more/", a.handleMore, a.limiter.Middleware)
	e.GET("/post/:uid/", a.handlePost)

	e.GET("/api/preview/", a.handlePreview, a.limiter.Middleware)
	e.GET("/api/exit-preview/", a.handleExitPreview)
	e.GET("/_image/", a.handleImage, a.limiter.Middleware)

	if a.analyticsStore != nil {
		analytics.NewHandler(a.analyticsStore, a.Config.StatsToken).RegisterRoutes(e)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
