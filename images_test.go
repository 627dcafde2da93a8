package spacetraveling

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/prismic/prismictest"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessImageDownscales(t *testing.T) {
	out, err := processImage(bytes.NewReader(testPNG(t, 200, 100)), 50)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	out, err := processImage(bytes.NewReader(testPNG(t, 40, 20)), 800)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, err := processImage(bytes.NewReader([]byte("not an image")), 100)
	assert.Error(t, err)
}

func TestClampWidth(t *testing.T) {
	assert.Equal(t, defaultImageWidth, clampWidth(""))
	assert.Equal(t, defaultImageWidth, clampWidth("-3"))
	assert.Equal(t, minImageWidth, clampWidth("1"))
	assert.Equal(t, 640, clampWidth("640"))
	assert.Equal(t, maxImageWidth, clampWidth("99999"))
}

func TestImageOptimizerAllowlist(t *testing.T) {
	o := NewImageOptimizer([]string{"images.prismic.io"}, nil)
	assert.True(t, o.Allowed("https://images.prismic.io/repo/a.png"))
	assert.False(t, o.Allowed("https://evil.example/a.png"))
	assert.False(t, o.Allowed("file:///etc/passwd"))

	_, err := o.Optimize(context.Background(), "http://169.254.169.254/latest", 100)
	assert.ErrorIs(t, err, errImageHost)
}

func TestImageOptimizerCachesResults(t *testing.T) {
	src := testPNG(t, 100, 100)
	var hits atomic.Int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(src)
	}))
	defer origin.Close()
	u, err := url.Parse(origin.URL)
	require.NoError(t, err)

	cache, err := prismic.NewMemoryCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()
	o := NewImageOptimizer([]string{u.Host}, cache)

	first, err := o.Optimize(context.Background(), origin.URL+"/a.png", 50)
	require.NoError(t, err)
	cache.Wait()
	second, err := o.Optimize(context.Background(), origin.URL+"/a.png", 50)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, hits.Load())
}

func TestImageEndpointRejectsForeignHost(t *testing.T) {
	srv := prismictest.NewServer()
	defer srv.Close()
	a := newTestApp(t, srv, SiteConfig{})

	rec := get(a, "/_image/?url="+url.QueryEscape("https://evil.example/a.png")+"&w=100")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(a, "/_image/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
