// Package analytics summarizes the advice interaction log.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"bodyshape-coach/internal/logger"
	"bodyshape-coach/internal/storage"
)

// DailyStats counts advice exchanges for one calendar day.
type DailyStats struct {
	Date        string                 `json:"date"`
	Total       int                    `json:"total"`
	UniqueUsers int                    `json:"unique_users"`
	BySource    map[storage.Source]int `json:"by_source"`
	ByKind      map[string]int         `json:"by_kind"`
	Failures    int                    `json:"failures"`
}

// AnalyzeDay aggregates events whose timestamp falls on day, in day's
// location.
func AnalyzeDay(events []storage.Event, day time.Time) DailyStats {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	stats := DailyStats{
		Date:     start.Format("2006-01-02"),
		BySource: make(map[storage.Source]int),
		ByKind:   make(map[string]int),
	}
	users := make(map[int64]struct{})
	for _, ev := range events {
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		stats.Total++
		users[ev.UserID] = struct{}{}
		stats.BySource[ev.Source]++
		stats.ByKind[ev.Kind]++
		if ev.Error != "" {
			stats.Failures++
		}
	}
	stats.UniqueUsers = len(users)
	return stats
}

// Summary renders the stats as one line, e.g.
// "2024-01-15: 3 answers to 2 users (fallback=1 llm=1 local=1), 1 backend failures".
func (s DailyStats) Summary() string {
	sources := make([]string, 0, len(s.BySource))
	for src, n := range s.BySource {
		sources = append(sources, fmt.Sprintf("%s=%d", src, n))
	}
	sort.Strings(sources)
	return fmt.Sprintf("%s: %d answers to %d users (%s), %d backend failures",
		s.Date, s.Total, s.UniqueUsers, strings.Join(sources, " "), s.Failures)
}

// ReportJob logs the stats of the previous day.
func ReportJob(rec storage.Recorder, now func() time.Time, log *zap.SugaredLogger) func(ctx context.Context) error {
	if now == nil {
		now = time.Now
	}
	log = logger.OrNop(log)
	return func(context.Context) error {
		events, err := rec.LoadInteractions()
		if err != nil {
			return fmt.Errorf("load advice log: %w", err)
		}
		stats := AnalyzeDay(events, now().UTC().AddDate(0, 0, -1))
		log.Infow("daily advice report",
			"summary", stats.Summary(),
			"total", stats.Total,
			"users", stats.UniqueUsers,
			"failures", stats.Failures,
		)
		return nil
	}
}
