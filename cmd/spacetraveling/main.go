// Command spacetraveling serves the blog, or exports it as a static site.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "export":
		err = runExport(os.Args[2:])
	case "version":
		fmt.Printf("spacetraveling %s\n", spacetraveling.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`spacetraveling - a blog front-end for a Prismic repository

Usage:
  spacetraveling <command> [arguments]

Commands:
  serve                         Run the HTTP server
  export [-bucket b] [-prefix p] [dir]
                                Render the site into dir (default "dist"),
                                then upload it to S3 when -bucket is set
  version                       Print the version
  help                          Show this help message

Environment:
  PRISMIC_API_ENDPOINT and PRISMIC_ACCESS_TOKEN are required.
  SESSION_SECRET is required for serve.`)
}

// siteConfig reads the site configuration from the environment.
func siteConfig() spacetraveling.SiteConfig {
	return spacetraveling.SiteConfig{
		Name:        os.Getenv("SITE_NAME"),
		URL:         os.Getenv("SITE_URL"),
		Description: os.Getenv("SITE_DESCRIPTION"),
		Author:      os.Getenv("SITE_AUTHOR"),
		Locale:      os.Getenv("SITE_LOCALE"),
		Addr:        os.Getenv("ADDR"),

		PageSize:    spacetraveling.EnvInt("PAGE_SIZE", 0),
		StaticPaths: spacetraveling.EnvInt("STATIC_PATHS", 0),
		Revalidate:  spacetraveling.EnvDuration("REVALIDATE", 0),
		Fallback:    spacetraveling.FallbackMode(os.Getenv("FALLBACK")),

		AnalyticsEnabled:      spacetraveling.EnvBool("ANALYTICS_ENABLED", false),
		AnalyticsDatabasePath: os.Getenv("ANALYTICS_DATABASE_PATH"),
		StatsToken:            os.Getenv("STATS_TOKEN"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		CookieSecure:  spacetraveling.EnvBool("COOKIE_SECURE", false),

		RedisURL:     os.Getenv("REDIS_URL"),
		SentryDSN:    os.Getenv("SENTRY_DSN"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ImageHosts:   spacetraveling.EnvList("IMAGE_HOSTS"),
	}
}

func repoConfig() prismic.Config {
	return prismic.Config{
		Endpoint:    spacetraveling.MustEnv("PRISMIC_API_ENDPOINT"),
		AccessToken: spacetraveling.MustEnv("PRISMIC_ACCESS_TOKEN"),
	}
}

func runServe() error {
	cfg := siteConfig()
	app := spacetraveling.New(cfg, repoConfig(), views.Funcs(cfg))

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		app.Close()
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Println("shutting down")
	return app.Shutdown(ctx)
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	bucket := fs.String("bucket", "", "S3 bucket to publish to")
	prefix := fs.String("prefix", "", "key prefix inside the bucket")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir := "dist"
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := siteConfig()
	app := spacetraveling.New(cfg, repoConfig(), views.StaticFuncs(cfg))
	defer app.Close()

	report, err := app.Export(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d pages and %d posts (%d files) to %s\n", report.Pages, report.Posts, report.Files, dir)

	if *bucket == "" {
		return nil
	}
	client, err := spacetraveling.NewS3Client(ctx)
	if err != nil {
		return err
	}
	n, err := app.Publish(ctx, client, dir, *bucket, *prefix)
	if err != nil {
		return err
	}
	fmt.Printf("Published %d files to s3://%s/%s\n", n, *bucket, *prefix)
	return nil
}
