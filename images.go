package spacetraveling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/spacetraveling/prismic"
)

const (
	minImageWidth     = 16
	maxImageWidth     = 1600
	defaultImageWidth = 800
	jpegQuality       = 80
	maxSourceSize     = 10 << 20 // 10MB
	imageCacheTTL     = 24 * time.Hour
)

var errImageHost = errors.New("image host not allowed")

// ImageOptimizer downscales remote images from an allowlist of hosts and
// keeps the encoded results in memory.
type ImageOptimizer struct {
	hosts  []string
	client *http.Client
	cache  prismic.Cache
}

// NewImageOptimizer creates an optimizer for the given hosts.
func NewImageOptimizer(hosts []string, cache prismic.Cache) *ImageOptimizer {
	return &ImageOptimizer{
		hosts:  hosts,
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  cache,
	}
}

// Allowed reports whether raw is an http(s) URL on an allowed host.
func (o *ImageOptimizer) Allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	return slices.Contains(o.hosts, u.Host)
}

// Optimize returns raw resized to at most width pixels wide, as JPEG.
func (o *ImageOptimizer) Optimize(ctx context.Context, raw string, width int) ([]byte, error) {
	if !o.Allowed(raw) {
		return nil, errImageHost
	}
	key := raw + "|" + strconv.Itoa(width)
	if o.cache != nil {
		if b, ok := o.cache.Get(ctx, key); ok {
			return b, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := processImage(io.LimitReader(resp.Body, maxSourceSize), width)
	if err != nil {
		return nil, err
	}
	if o.cache != nil {
		o.cache.Set(ctx, key, data, imageCacheTTL)
	}
	return data, nil
}

// processImage decodes an image from src, downscales it to width when it is
// wider, and encodes it as JPEG.
func processImage(src io.Reader, width int) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > width {
		newH := max(1, h*width/w)
		dst := image.NewRGBA(image.Rect(0, 0, width, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// clampWidth parses the requested width, defaulting and bounding it.
func clampWidth(s string) int {
	w, err := strconv.Atoi(s)
	if err != nil || w <= 0 {
		return defaultImageWidth
	}
	return min(max(w, minImageWidth), maxImageWidth)
}

func (a *App) handleImage(c echo.Context) error {
	raw := c.QueryParam("url")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing url")
	}
	data, err := a.images.Optimize(c.Request().Context(), raw, clampWidth(c.QueryParam("w")))
	if err != nil {
		if errors.Is(err, errImageHost) {
			return echo.NewHTTPError(http.StatusBadRequest, "image host not allowed")
		}
		c.Logger().Errorf("image %s: %v", raw, err)
		return echo.NewHTTPError(http.StatusBadGateway, "image unavailable")
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

// ImageURL returns the optimizer URL for src at width.
func ImageURL(src string, width int) string {
	if src == "" {
		return ""
	}
	return "/_image/?url=" + url.QueryEscape(src) + "&w=" + strconv.Itoa(width)
}
