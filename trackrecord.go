package main

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DayRecord is one day of the weekly track-record breakdown.
type DayRecord struct {
	Date           string `json:"date"` // YYYY-MM-DD
	DayName        string `json:"dayName"`
	FocusSessions  int    `json:"focusSessions"`
	TotalFocusTime int    `json:"totalFocusTime"` // minutes
	TasksCompleted int    `json:"tasksCompleted"`
	TotalTasks     int    `json:"totalTasks"`
	BreaksTaken    int    `json:"breaksTaken"`
	Productivity   int    `json:"productivity"` // percentage
	Streak         bool   `json:"streak"`
}

// WeeklyStats summarizes a week of DayRecords.
type WeeklyStats struct {
	TotalSessions       int    `json:"totalSessions"`
	TotalFocusTime      int    `json:"totalFocusTime"` // minutes
	TotalTasks          int    `json:"totalTasks"`
	CompletedTasks      int    `json:"completedTasks"`
	AverageProductivity int    `json:"averageProductivity"`
	CurrentStreak       int    `json:"currentStreak"`
	BestDay             string `json:"bestDay"`
	Improvement         int    `json:"improvement"` // percentage change vs previous week
}

// weekStart returns Sunday 00:00:00 of the week `offset` whole weeks
// away from now, in loc.
func weekStart(now time.Time, offset int, loc *time.Location) time.Time {
	t := now.In(loc).AddDate(0, 0, offset*7)
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return t.AddDate(0, 0, -int(t.Weekday()))
}

// dayIndex places t within the week starting at start, or -1 when t is
// outside the window or unset. Matching is by calendar date rather than
// elapsed hours, so the short and long days around a DST transition
// still bucket correctly. Zero timestamps come from records with
// malformed or missing dates and are excluded rather than miscounted.
func dayIndex(t time.Time, start time.Time, loc *time.Location) int {
	if t.IsZero() {
		return -1
	}
	y, m, d := t.In(loc).Date()
	for i := 0; i < 7; i++ {
		wy, wm, wd := start.AddDate(0, 0, i).Date()
		if y == wy && m == wm && d == wd {
			return i
		}
	}
	return -1
}

func roundPct(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(d) * 100))
}

// weeklyReport derives the per-day breakdown and weekly summary for the
// week `offset` (<= 0) whole weeks before now. Pure: it only reads the
// slices it is given and never touches persistence.
func weeklyReport(tasks []Task, sessions []PomodoroSession, offset int, loc *time.Location, now time.Time) ([]DayRecord, WeeklyStats) {
	start := weekStart(now, offset, loc)
	days := make([]DayRecord, 7)
	for i := range days {
		d := start.AddDate(0, 0, i)
		days[i].Date = d.Format("2006-01-02")
		days[i].DayName = d.Format("Mon")
	}

	for _, s := range sessions {
		i := dayIndex(s.StartTime, start, loc)
		if i < 0 {
			continue
		}
		days[i].FocusSessions++
		days[i].TotalFocusTime += s.Duration
		if s.BreakDuration > 0 {
			days[i].BreaksTaken++
		}
	}

	prevCompleted := 0
	prevStart := start.AddDate(0, 0, -7)
	for _, t := range tasks {
		if i := dayIndex(t.CreatedAt, start, loc); i >= 0 {
			days[i].TotalTasks++
		}
		if t.Status != StatusCompleted {
			continue
		}
		if i := dayIndex(t.UpdatedAt, start, loc); i >= 0 {
			days[i].TasksCompleted++
		}
		if dayIndex(t.UpdatedAt, prevStart, loc) >= 0 {
			prevCompleted++
		}
	}

	var stats WeeklyStats
	prodSum := 0
	best := 0
	for i := range days {
		days[i].Productivity = roundPct(days[i].TasksCompleted, days[i].TotalTasks)
		days[i].Streak = days[i].TasksCompleted > 0

		stats.TotalSessions += days[i].FocusSessions
		stats.TotalFocusTime += days[i].TotalFocusTime
		stats.TotalTasks += days[i].TotalTasks
		stats.CompletedTasks += days[i].TasksCompleted
		prodSum += days[i].Productivity

		if days[i].Productivity > days[best].Productivity ||
			(days[i].Productivity == days[best].Productivity && days[i].TasksCompleted > days[best].TasksCompleted) {
			best = i
		}
	}
	stats.AverageProductivity = int(math.Round(float64(prodSum) / 7))
	stats.BestDay = start.AddDate(0, 0, best).Format("Monday")

	switch {
	case prevCompleted == 0 && stats.CompletedTasks > 0:
		stats.Improvement = 100
	case prevCompleted == 0:
		stats.Improvement = 0
	default:
		stats.Improvement = int(math.Round(float64(stats.CompletedTasks-prevCompleted) / float64(prevCompleted) * 100))
	}

	// Streak scan runs backward from the last day of the window that is
	// not in the future and stops at the first day without a completion.
	last := 6
	if i := dayIndex(now, start, loc); i >= 0 {
		last = i
	}
	for i := last; i >= 0 && days[i].TasksCompleted > 0; i-- {
		stats.CurrentStreak++
	}

	return days, stats
}

// GET /api/track-record?week=<offset>
func handleTrackRecord(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	offset := 0
	if v := strings.TrimSpace(r.URL.Query().Get("week")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			validationJSON(w, []fieldError{{"week", "Week offset must be an integer"}})
			return
		}
		offset = n
	}
	if offset > 0 {
		validationJSON(w, []fieldError{{"week", "Future weeks are not available"}})
		return
	}

	now := time.Now()
	loc := time.Local
	// One extra week behind the window feeds the improvement metric.
	from := weekStart(now, offset, loc).AddDate(0, 0, -7)
	to := weekStart(now, offset, loc).AddDate(0, 0, 7)

	var tasks []Task
	if err := DB.Where("user_id = ? AND (created_at < ? AND updated_at >= ?)", u.ID, to, from).
		Find(&tasks).Error; err != nil {
		log.Printf("[track-record] tasks: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to fetch track record")
		return
	}
	var sessions []PomodoroSession
	if err := DB.Where("user_id = ? AND start_time >= ? AND start_time < ?", u.ID, from, to).
		Find(&sessions).Error; err != nil {
		log.Printf("[track-record] sessions: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to fetch track record")
		return
	}

	days, stats := weeklyReport(tasks, sessions, offset, loc, now)
	writeJSON(w, http.StatusOK, map[string]any{
		"week":  offset,
		"days":  days,
		"stats": stats,
		"start": days[0].Date,
		"end":   days[6].Date,
	})
}
