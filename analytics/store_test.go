package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, InitSalt(s))
	return s
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetSetting("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetSetting("k", "one"))
	require.NoError(t, s.SetSetting("k", "two"))
	v, err = s.GetSetting("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	ver, err := s.GetSetting("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", ver)
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	visits := []Visit{
		{VisitorID: "a", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/", Referrer: "Direct"},
		{VisitorID: "a", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/post/one/", Referrer: "Direct"},
		{VisitorID: "b", Browser: "Firefox", OS: "Windows", Device: "Desktop", Path: "/post/one/", Referrer: "Google"},
	}
	for i := range visits {
		visits[i].SessionID = "s"
		visits[i].IPHash = "h"
		visits[i].Timestamp = now.Add(-time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveVisit(ctx, &visits[i]))
	}
	old := Visit{VisitorID: "c", Browser: "Safari", OS: "iOS", Device: "Mobile", Path: "/old/", Timestamp: now.AddDate(0, 0, -30)}
	require.NoError(t, s.SaveVisit(ctx, &old))
	require.NoError(t, s.SaveBotVisit(ctx, &BotVisit{BotName: "Googlebot", IPHash: "h", UserAgent: "Googlebot", Path: "/", Timestamp: now}))

	stats, err := s.GetStats(ctx, now.AddDate(0, 0, -7), now.Add(time.Hour), ByDay)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalViews)
	assert.Equal(t, 2, stats.UniqueVisitors)
	assert.Equal(t, 1, stats.BotVisits)
	require.NotEmpty(t, stats.TopPages)
	assert.Equal(t, PageStat{Path: "/post/one/", Views: 2}, stats.TopPages[0])
	assert.Equal(t, DimensionStat{Name: "Chrome", Count: 2}, stats.BrowserStats[0])
	assert.Equal(t, []DimensionStat{{Name: "Googlebot", Count: 1}}, stats.TopBots)
	assert.Len(t, stats.LatestPages, 3)
	assert.Equal(t, "/", stats.LatestPages[0].Path)

	var total int
	for _, d := range stats.DailyViews {
		total += d.Views
	}
	assert.Equal(t, 3, total)
}

func TestGetStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	stats, err := s.GetStats(context.Background(), now.Add(-time.Hour), now, ByHour)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalViews)
	assert.NotNil(t, stats.TopPages)
	assert.NotNil(t, stats.LatestPages)
}

func TestCleanupOldVisits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveVisit(ctx, &Visit{VisitorID: "new", Path: "/", Timestamp: now}))
	require.NoError(t, s.SaveVisit(ctx, &Visit{VisitorID: "old", Path: "/", Timestamp: now.AddDate(-2, 0, 0)}))
	require.NoError(t, s.SaveBotVisit(ctx, &BotVisit{BotName: "x", Path: "/", Timestamp: now.AddDate(-2, 0, 0)}))

	require.NoError(t, s.CleanupOldVisits(ctx, 365))

	stats, err := s.GetStats(ctx, now.AddDate(-3, 0, 0), now.Add(time.Hour), ByMonth)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalViews)
	assert.Zero(t, stats.BotVisits)
}

func TestMiddlewareRecordsHTMLViews(t *testing.T) {
	s := newTestStore(t)
	e := echo.New()
	e.Use(Middleware(s, func(path string) bool { return path == "/skip" }))
	html := func(c echo.Context) error { return c.HTML(http.StatusOK, "<p>ok</p>") }
	e.GET("/", html)
	e.GET("/skip", html)
	e.GET("/json", func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]int{}) })
	e.GET("/missing", func(c echo.Context) error { return c.HTML(http.StatusNotFound, "nope") })

	do := func(path, ua string, header ...string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("User-Agent", ua)
		for i := 0; i+1 < len(header); i += 2 {
			req.Header.Set(header[i], header[i+1])
		}
		e.ServeHTTP(httptest.NewRecorder(), req)
	}
	browser := "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	do("/", browser)
	do("/", browser, "Referer", "https://www.google.com/")
	do("/", browser, "DNT", "1")
	do("/skip", browser)
	do("/json", browser)
	do("/missing", browser)
	do("/", "Googlebot/2.1")

	now := time.Now().UTC()
	stats, err := s.GetStats(context.Background(), now.Add(-time.Hour), now.Add(time.Hour), ByDay)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalViews)
	assert.Equal(t, 1, stats.UniqueVisitors)
	assert.Equal(t, 1, stats.BotVisits)
	assert.Contains(t, stats.ReferrerStats, DimensionStat{Name: "Google", Count: 1})
}

func TestStatsHandlerRequiresToken(t *testing.T) {
	s := newTestStore(t)
	e := echo.New()
	NewHandler(s, "secret").RegisterRoutes(e)

	tests := []struct {
		auth string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer wrong", http.StatusUnauthorized},
		{"secret", http.StatusUnauthorized},
		{"Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/stats?period=today", nil)
		if tt.auth != "" {
			req.Header.Set("Authorization", tt.auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, tt.auth)
	}
}

func TestStatsHandlerDisabledWithoutToken(t *testing.T) {
	s := newTestStore(t)
	e := echo.New()
	NewHandler(s, "").RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFillHourlyData(t *testing.T) {
	from := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	out := fillHourlyData([]DailyView{{Date: "23:00", Views: 4}}, from)
	require.Len(t, out, 24)
	assert.Equal(t, DailyView{Date: "22:00"}, out[0])
	assert.Equal(t, DailyView{Date: "23:00", Views: 4}, out[1])
	assert.Equal(t, "00:00", out[2].Date)
}

func TestParsePeriod(t *testing.T) {
	p, days, b := parsePeriod("bogus")
	assert.Equal(t, "week", p)
	assert.Equal(t, 7, days)
	assert.Equal(t, ByDay, b)

	_, days, b = parsePeriod("year")
	assert.Equal(t, 365, days)
	assert.Equal(t, ByMonth, b)
}
