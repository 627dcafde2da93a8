package analytics

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Middleware records successful HTML page views after the response has been
// written. Bots go to bot_visits, everything else to visits. Requests with
// DNT: 1 are not recorded.
func Middleware(store *Store, skip func(path string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			res := c.Response()
			if req.Method != http.MethodGet || res.Status != http.StatusOK {
				return err
			}
			if !strings.HasPrefix(res.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
				return err
			}
			if req.Header.Get("DNT") == "1" || (skip != nil && skip(req.URL.Path)) {
				return err
			}

			ip := c.RealIP()
			ua := req.UserAgent()
			now := time.Now().UTC()
			ctx := req.Context()

			if IsBot(ua) {
				bv := &BotVisit{
					BotName:   ExtractBotName(ua),
					IPHash:    HashIP(ip),
					UserAgent: truncate(ua, maxUserAgentLen),
					Path:      truncate(req.URL.Path, maxPathLen),
					Timestamp: now,
				}
				if saveErr := store.SaveBotVisit(ctx, bv); saveErr != nil {
					c.Logger().Errorf("Failed to save bot visit: %v", saveErr)
				}
				return err
			}

			visitorID := GenerateVisitorID(ip, ua)
			browser, os, device := ParseUserAgent(ua)
			v := &Visit{
				VisitorID: visitorID,
				SessionID: generateSessionID(visitorID, now),
				IPHash:    HashIP(ip),
				Browser:   browser,
				OS:        os,
				Device:    device,
				Path:      truncate(req.URL.Path, maxPathLen),
				Referrer:  CleanReferrer(truncate(req.Referer(), maxReferrerLen)),
				Timestamp: now,
			}
			if saveErr := store.SaveVisit(ctx, v); saveErr != nil {
				c.Logger().Errorf("Failed to save visit: %v", saveErr)
			}
			return err
		}
	}
}

// Input limits for recorded values.
const (
	maxPathLen      = 2048
	maxReferrerLen  = 2048
	maxUserAgentLen = 512
)

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Handler serves the stats API.
type Handler struct {
	store *Store
	token string
}

// NewHandler creates a stats handler. Requests must carry
// "Authorization: Bearer <token>"; an empty token disables the endpoint.
func NewHandler(store *Store, token string) *Handler {
	return &Handler{store: store, token: token}
}

// StatsResponse is the JSON response for stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	Realtime   int    `json:"realtime_visitors"`
	PeriodDays int    `json:"period_days"`
	Period     string `json:"period"`
}

// Stats returns analytics statistics as JSON.
func (h *Handler) Stats(c echo.Context) error {
	if !h.authorized(c.Request()) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	period, days, bucket := parsePeriod(c.QueryParam("period"))
	from, to := calcTimeRange(time.Now().UTC(), days, bucket == ByHour)

	ctx := c.Request().Context()
	stats, err := h.store.GetStats(ctx, from, to, bucket)
	if err != nil {
		c.Logger().Errorf("Failed to get stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if bucket == ByHour {
		stats.DailyViews = fillHourlyData(stats.DailyViews, from)
	}

	realtime, _ := h.store.RealtimeVisitors(ctx)

	return c.JSON(http.StatusOK, StatsResponse{
		Stats:      stats,
		Realtime:   realtime,
		PeriodDays: days,
		Period:     period,
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	got, ok := strings.CutPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

// RegisterRoutes registers analytics routes with the Echo router.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stats", h.Stats)
}

// parsePeriod parses the period query parameter
func parsePeriod(period string) (string, int, Bucket) {
	switch period {
	case "today":
		return period, 1, ByHour
	case "month":
		return period, 30, ByDay
	case "year":
		return period, 365, ByMonth
	default:
		return "week", 7, ByDay
	}
}

// calcTimeRange returns the from/to times for the given period.
func calcTimeRange(now time.Time, days int, hourly bool) (time.Time, time.Time) {
	if hourly {
		currentHour := now.Truncate(time.Hour)
		from := currentHour.Add(-23 * time.Hour)
		return from, now.Add(time.Second)
	}
	from := now.AddDate(0, 0, -days).Truncate(24 * time.Hour)
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	return from, to
}

// fillHourlyData ensures all 24 hourly slots are present, filling gaps with zero.
func fillHourlyData(sparse []DailyView, from time.Time) []DailyView {
	dataMap := make(map[string]int, len(sparse))
	for _, v := range sparse {
		dataMap[v.Date] = v.Views
	}

	result := make([]DailyView, 24)
	for i := 0; i < 24; i++ {
		hour := from.Add(time.Duration(i) * time.Hour)
		label := fmt.Sprintf("%02d:00", hour.Hour())
		result[i] = DailyView{Date: label, Views: dataMap[label]}
	}

	return result
}

// generateSessionID creates a session ID derived from visitor identity and date.
func generateSessionID(visitorID string, now time.Time) string {
	day := now.UTC().Format("2006-01-02")
	h := sha256.New()
	h.Write([]byte(visitorID + "|" + day))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
