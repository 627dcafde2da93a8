package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// timeLayout is how timestamps are stored. It sorts lexically and is
// understood by SQLite's date functions.
const timeLayout = "2006-01-02 15:04:05"

// Store provides database operations for analytics.
type Store struct {
	db *sql.DB
}

// NewStore creates a new analytics store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT,
			timestamp TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_visitor_id ON visits(visitor_id);
		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);

		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_name ON bot_visits(bot_name);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// migrate applies incremental schema migrations based on a version stored in the settings table.
func (s *Store) migrate() error {
	verStr, err := s.GetSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}

	if version < currentSchemaVersion {
		version = currentSchemaVersion
	}

	return s.SetSetting("schema_version", strconv.Itoa(version))
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveVisit stores a new visit in the database.
func (s *Store) SaveVisit(ctx context.Context, v *Visit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO visits
		(visitor_id, session_id, ip_hash, browser, os, device, path, referrer, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.SessionID, v.IPHash, v.Browser, v.OS, v.Device, v.Path, v.Referrer,
		v.Timestamp.UTC().Format(timeLayout))
	return err
}

// SaveBotVisit stores a new bot visit in the database.
func (s *Store) SaveBotVisit(ctx context.Context, bv *BotVisit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO bot_visits
		(bot_name, ip_hash, user_agent, path, timestamp) VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC().Format(timeLayout))
	return err
}

// Bucket selects the granularity of Stats.DailyViews.
type Bucket int

const (
	ByDay Bucket = iota
	ByHour
	ByMonth
)

func (b Bucket) expr() string {
	switch b {
	case ByHour:
		return `strftime('%H:00', timestamp)`
	case ByMonth:
		return `strftime('%Y-%m', timestamp)`
	default:
		return `date(timestamp)`
	}
}

// GetStats returns aggregated statistics for visits in [from, to).
func (s *Store) GetStats(ctx context.Context, from, to time.Time, bucket Bucket) (*Stats, error) {
	stats := &Stats{
		Period:        from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopPages:      []PageStat{},
		LatestPages:   []LatestPageVisit{},
		BrowserStats:  []DimensionStat{},
		OSStats:       []DimensionStat{},
		DeviceStats:   []DimensionStat{},
		ReferrerStats: []DimensionStat{},
		DailyViews:    []DailyView{},
		TopBots:       []DimensionStat{},
	}
	f, t := from.UTC().Format(timeLayout), to.UTC().Format(timeLayout)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	count := func(name, query string, dst *int) {
		g.Go(func() error {
			var n int
			if err := s.db.QueryRowContext(ctx, query, f, t).Scan(&n); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			mu.Lock()
			*dst = n
			mu.Unlock()
			return nil
		})
	}
	dimension := func(name, query string, dst *[]DimensionStat) {
		g.Go(func() error {
			rows, err := s.dimension(ctx, query, f, t)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			mu.Lock()
			*dst = rows
			mu.Unlock()
			return nil
		})
	}

	count("count views", `SELECT COUNT(*) FROM visits WHERE timestamp >= ? AND timestamp < ?`, &stats.TotalViews)
	count("count unique visitors", `SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ? AND timestamp < ?`, &stats.UniqueVisitors)
	count("count bot visits", `SELECT COUNT(*) FROM bot_visits WHERE timestamp >= ? AND timestamp < ?`, &stats.BotVisits)

	dimension("browser stats", dimensionQuery("visits", "browser"), &stats.BrowserStats)
	dimension("os stats", dimensionQuery("visits", "os"), &stats.OSStats)
	dimension("device stats", dimensionQuery("visits", "device"), &stats.DeviceStats)
	dimension("referrer stats", dimensionQuery("visits", "referrer"), &stats.ReferrerStats)
	dimension("top bots", dimensionQuery("bot_visits", "bot_name"), &stats.TopBots)

	// Top pages
	g.Go(func() error {
		rows, err := s.dimension(ctx, dimensionQuery("visits", "path"), f, t)
		if err != nil {
			return fmt.Errorf("top pages: %w", err)
		}
		pages := make([]PageStat, len(rows))
		for i, r := range rows {
			pages[i] = PageStat{Path: r.Name, Views: r.Count}
		}
		mu.Lock()
		stats.TopPages = pages
		mu.Unlock()
		return nil
	})

	// Latest pages
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT path, timestamp, browser FROM visits
			WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC, id DESC LIMIT 10`, f, t)
		if err != nil {
			return fmt.Errorf("latest pages: %w", err)
		}
		defer rows.Close()
		var latest []LatestPageVisit
		for rows.Next() {
			var v LatestPageVisit
			if err := rows.Scan(&v.Path, &v.Timestamp, &v.Browser); err != nil {
				return fmt.Errorf("latest pages: %w", err)
			}
			latest = append(latest, v)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("latest pages: %w", err)
		}
		mu.Lock()
		if latest != nil {
			stats.LatestPages = latest
		}
		mu.Unlock()
		return nil
	})

	// Daily/hourly/monthly views
	g.Go(func() error {
		expr := bucket.expr()
		rows, err := s.dimension(ctx, `SELECT `+expr+` AS d, COUNT(*) FROM visits
			WHERE timestamp >= ? AND timestamp < ? GROUP BY d ORDER BY d`, f, t)
		if err != nil {
			return fmt.Errorf("views over time: %w", err)
		}
		views := make([]DailyView, len(rows))
		for i, r := range rows {
			views[i] = DailyView{Date: r.Name, Views: r.Count}
		}
		mu.Lock()
		stats.DailyViews = views
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// dimensionQuery groups table by column. Callers pass constant identifiers only.
func dimensionQuery(table, column string) string {
	return `SELECT COALESCE(` + column + `, '') AS name, COUNT(*) AS n FROM ` + table + `
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY name ORDER BY n DESC, name LIMIT 10`
}

func (s *Store) dimension(ctx context.Context, query string, args ...any) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CleanupOldVisits removes visits and bot visits older than the retention period.
func (s *Store) CleanupOldVisits(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(timeLayout)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup visits: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, logf func(format string, args ...any)) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldVisits(context.Background(), retentionDays); err != nil && logf != nil {
					logf("analytics cleanup error: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// RealtimeVisitors returns the number of unique visitors in the last 5 minutes.
func (s *Store) RealtimeVisitors(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-5 * time.Minute).Format(timeLayout)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ?`, cutoff).Scan(&n)
	return n, err
}
