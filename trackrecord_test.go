package main

import (
	"reflect"
	"testing"
	"time"
)

// Wednesday, Jan 17 2024. The surrounding week runs Sun Jan 14 through
// Sat Jan 20.
var testNow = time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

func day(dom, hour int) time.Time {
	return time.Date(2024, 1, dom, hour, 0, 0, 0, time.UTC)
}

func completedTask(created, updated time.Time) Task {
	return Task{Status: StatusCompleted, CreatedAt: created, UpdatedAt: updated}
}

func openTask(created time.Time) Task {
	return Task{Status: StatusTodo, CreatedAt: created, UpdatedAt: created}
}

func TestWeekStartSnapsToSunday(t *testing.T) {
	t.Parallel()

	got := weekStart(testNow, 0, time.UTC)
	want := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("weekStart = %v, want %v", got, want)
	}

	// A Sunday itself is its own week start.
	sun := time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC)
	if got := weekStart(sun, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("weekStart(sunday) = %v, want %v", got, want)
	}

	// Negative offsets shift whole weeks back.
	if got := weekStart(testNow, -2, time.UTC); !got.Equal(want.AddDate(0, 0, -14)) {
		t.Fatalf("weekStart(-2) = %v, want %v", got, want.AddDate(0, 0, -14))
	}
}

func TestWeeklyReportEmptyInputs(t *testing.T) {
	t.Parallel()

	days, stats := weeklyReport(nil, nil, 0, time.UTC, testNow)
	if len(days) != 7 {
		t.Fatalf("expected 7 day records, got %d", len(days))
	}
	for _, d := range days {
		if d.FocusSessions != 0 || d.TotalFocusTime != 0 || d.TasksCompleted != 0 ||
			d.TotalTasks != 0 || d.Productivity != 0 || d.Streak {
			t.Errorf("day %s not zeroed: %+v", d.Date, d)
		}
	}
	if stats.TotalSessions != 0 || stats.TotalFocusTime != 0 || stats.TotalTasks != 0 ||
		stats.CompletedTasks != 0 || stats.AverageProductivity != 0 ||
		stats.CurrentStreak != 0 || stats.Improvement != 0 {
		t.Errorf("stats not zeroed: %+v", stats)
	}
	if days[0].Date != "2024-01-14" || days[6].Date != "2024-01-20" {
		t.Errorf("window = %s..%s, want 2024-01-14..2024-01-20", days[0].Date, days[6].Date)
	}
}

func TestWeeklyReportIdempotent(t *testing.T) {
	t.Parallel()

	tasks := []Task{
		completedTask(day(15, 9), day(15, 17)),
		openTask(day(16, 9)),
	}
	sessions := []PomodoroSession{
		{StartTime: day(15, 10), Duration: 25},
		{StartTime: day(16, 10), Duration: 50, BreakDuration: 5},
	}

	d1, s1 := weeklyReport(tasks, sessions, 0, time.UTC, testNow)
	d2, s2 := weeklyReport(tasks, sessions, 0, time.UTC, testNow)
	if !reflect.DeepEqual(d1, d2) || !reflect.DeepEqual(s1, s2) {
		t.Fatal("same inputs produced different outputs")
	}
}

func TestWeeklyReportSameDayCompletion(t *testing.T) {
	t.Parallel()

	// Task created Monday as todo, completed the same Monday.
	tasks := []Task{completedTask(day(15, 9), day(15, 17))}

	days, stats := weeklyReport(tasks, nil, 0, time.UTC, testNow)
	mon := days[1]
	if mon.DayName != "Mon" {
		t.Fatalf("days[1] = %s, want Mon", mon.DayName)
	}
	if mon.TotalTasks != 1 || mon.TasksCompleted != 1 || mon.Productivity != 100 {
		t.Errorf("monday = %+v, want 1 created, 1 completed, 100%%", mon)
	}
	if stats.TotalTasks != 1 || stats.CompletedTasks != 1 {
		t.Errorf("stats = %+v, want totals 1/1", stats)
	}
}

func TestWeeklyReportSessionsPerDay(t *testing.T) {
	t.Parallel()

	sessions := []PomodoroSession{
		{StartTime: day(15, 9), Duration: 25},
		{StartTime: day(15, 14), Duration: 25, BreakDuration: 5},
		{StartTime: day(16, 9), Duration: 50},
		{StartTime: day(8, 9), Duration: 25},  // previous week
		{StartTime: day(22, 9), Duration: 25}, // next week
		{Duration: 25},                        // missing start time
	}

	days, stats := weeklyReport(nil, sessions, 0, time.UTC, testNow)
	if days[1].FocusSessions != 2 || days[1].TotalFocusTime != 50 || days[1].BreaksTaken != 1 {
		t.Errorf("monday = %+v, want 2 sessions, 50 min, 1 break", days[1])
	}
	if days[2].FocusSessions != 1 || days[2].TotalFocusTime != 50 {
		t.Errorf("tuesday = %+v, want 1 session, 50 min", days[2])
	}
	if stats.TotalSessions != 3 || stats.TotalFocusTime != 100 {
		t.Errorf("stats = %+v, want 3 sessions, 100 min", stats)
	}
}

func TestWeeklyReportProductivityZeroWhenNoneCreated(t *testing.T) {
	t.Parallel()

	// Completed this week but created earlier: counts toward completions,
	// not toward the created total, and that day's productivity stays
	// defined.
	tasks := []Task{completedTask(day(10, 9), day(15, 17))}

	days, _ := weeklyReport(tasks, nil, 0, time.UTC, testNow)
	if days[1].TotalTasks != 0 || days[1].TasksCompleted != 1 {
		t.Errorf("monday = %+v, want 0 created, 1 completed", days[1])
	}
	// round(100 * 1 / 0) is defined as 0 by contract.
	if days[1].Productivity != 0 {
		t.Errorf("productivity = %d, want 0 when nothing was created", days[1].Productivity)
	}
}

func TestWeeklyReportBestDay(t *testing.T) {
	t.Parallel()

	tasks := []Task{
		// Monday: 1 of 2 -> 50%
		completedTask(day(15, 9), day(15, 17)),
		openTask(day(15, 10)),
		// Tuesday: 2 of 2 -> 100%
		completedTask(day(16, 9), day(16, 11)),
		completedTask(day(16, 9), day(16, 12)),
		// Thursday: 1 of 1 -> 100%, ties Tuesday but fewer completions
		completedTask(day(18, 9), day(18, 17)),
	}

	_, stats := weeklyReport(tasks, nil, 0, time.UTC, testNow)
	if stats.BestDay != "Tuesday" {
		t.Fatalf("bestDay = %q, want Tuesday (tie broken by completions)", stats.BestDay)
	}
}

func TestWeeklyReportImprovement(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		tasks []Task
		want  int
	}{
		{
			name: "previous zero with current completions",
			tasks: []Task{
				completedTask(day(15, 9), day(15, 17)),
			},
			want: 100,
		},
		{
			name:  "both weeks zero",
			tasks: nil,
			want:  0,
		},
		{
			name: "doubled week over week",
			tasks: []Task{
				completedTask(day(8, 9), day(8, 17)), // previous week
				completedTask(day(15, 9), day(15, 17)),
				completedTask(day(16, 9), day(16, 17)),
			},
			want: 100,
		},
		{
			name: "halved week over week",
			tasks: []Task{
				completedTask(day(8, 9), day(8, 10)),
				completedTask(day(9, 9), day(9, 10)),
				completedTask(day(15, 9), day(15, 17)),
			},
			want: -50,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, stats := weeklyReport(tc.tasks, nil, 0, time.UTC, testNow)
			if stats.Improvement != tc.want {
				t.Errorf("improvement = %d, want %d", stats.Improvement, tc.want)
			}
		})
	}
}

func TestWeeklyReportCurrentStreak(t *testing.T) {
	t.Parallel()

	// Completions Mon, Tue, Wed (today). Sunday had none, so the
	// backward scan from Wednesday stops there: streak 3.
	tasks := []Task{
		completedTask(day(15, 9), day(15, 17)),
		completedTask(day(16, 9), day(16, 17)),
		completedTask(day(17, 9), day(17, 10)),
	}

	_, stats := weeklyReport(tasks, nil, 0, time.UTC, testNow)
	if stats.CurrentStreak != 3 {
		t.Fatalf("currentStreak = %d, want 3", stats.CurrentStreak)
	}

	// A gap on Tuesday cuts the scan at Wednesday.
	gap := []Task{
		completedTask(day(15, 9), day(15, 17)),
		completedTask(day(17, 9), day(17, 10)),
	}
	_, stats = weeklyReport(gap, nil, 0, time.UTC, testNow)
	if stats.CurrentStreak != 1 {
		t.Fatalf("currentStreak with gap = %d, want 1", stats.CurrentStreak)
	}

	// No completion today ends the streak immediately.
	stale := []Task{completedTask(day(15, 9), day(15, 17))}
	_, stats = weeklyReport(stale, nil, 0, time.UTC, testNow)
	if stats.CurrentStreak != 0 {
		t.Fatalf("currentStreak without today = %d, want 0", stats.CurrentStreak)
	}
}

func TestWeeklyReportPastWeekStreakScansFromSaturday(t *testing.T) {
	t.Parallel()

	// For a fully past week the scan starts at Saturday.
	tasks := []Task{
		completedTask(day(12, 9), day(12, 17)), // Fri previous week
		completedTask(day(13, 9), day(13, 17)), // Sat previous week
	}

	_, stats := weeklyReport(tasks, nil, -1, time.UTC, testNow)
	if stats.CurrentStreak != 2 {
		t.Fatalf("currentStreak = %d, want 2", stats.CurrentStreak)
	}
}

func TestWeeklyReportMalformedDatesExcluded(t *testing.T) {
	t.Parallel()

	tasks := []Task{
		{Status: StatusCompleted}, // zero created/updated
		openTask(time.Time{}),
	}
	sessions := []PomodoroSession{{Duration: 25}}

	days, stats := weeklyReport(tasks, sessions, 0, time.UTC, testNow)
	for _, d := range days {
		if d.TotalTasks != 0 || d.TasksCompleted != 0 || d.FocusSessions != 0 {
			t.Errorf("day %s counted a record with no dates: %+v", d.Date, d)
		}
	}
	if stats.TotalTasks != 0 || stats.CompletedTasks != 0 || stats.TotalSessions != 0 {
		t.Errorf("stats counted records with no dates: %+v", stats)
	}
}

func TestWeeklyReportSpansDSTTransition(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// The week of Sun 2024-03-10: clocks jump forward that Sunday, so it
	// is only 23 hours long. Every record must still land on its own
	// calendar day.
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, loc)
	sessions := []PomodoroSession{
		{StartTime: time.Date(2024, 3, 11, 9, 0, 0, 0, loc), Duration: 25},
		{StartTime: time.Date(2024, 3, 16, 21, 0, 0, 0, loc), Duration: 50},
	}
	tasks := []Task{{
		Status:    StatusCompleted,
		CreatedAt: time.Date(2024, 3, 11, 9, 0, 0, 0, loc),
		UpdatedAt: time.Date(2024, 3, 11, 17, 0, 0, 0, loc),
	}}

	days, _ := weeklyReport(tasks, sessions, 0, loc, now)
	if days[0].FocusSessions != 0 || days[1].FocusSessions != 1 {
		t.Errorf("monday session bucketed as Sun=%d Mon=%d, want 0/1",
			days[0].FocusSessions, days[1].FocusSessions)
	}
	if days[6].FocusSessions != 1 {
		t.Errorf("saturday sessions = %d, want 1", days[6].FocusSessions)
	}
	if days[1].TotalTasks != 1 || days[1].TasksCompleted != 1 || days[1].Productivity != 100 {
		t.Errorf("monday = %+v, want 1 created, 1 completed, 100%%", days[1])
	}

	// The fall-back week of Sun 2024-11-03 runs 169 hours; its Saturday
	// evening still belongs to the last slot.
	fallNow := time.Date(2024, 11, 9, 23, 30, 0, 0, loc)
	fallSessions := []PomodoroSession{
		{StartTime: time.Date(2024, 11, 9, 23, 0, 0, 0, loc), Duration: 25},
	}
	days, _ = weeklyReport(nil, fallSessions, 0, loc, fallNow)
	if days[6].FocusSessions != 1 {
		t.Errorf("fall-back saturday sessions = %d, want 1", days[6].FocusSessions)
	}
}

func TestWeeklyReportAverageProductivity(t *testing.T) {
	t.Parallel()

	// Monday 100%, Tuesday 50%, rest 0 -> round(150/7) = 21.
	tasks := []Task{
		completedTask(day(15, 9), day(15, 17)),
		completedTask(day(16, 9), day(16, 17)),
		openTask(day(16, 10)),
	}

	_, stats := weeklyReport(tasks, nil, 0, time.UTC, testNow)
	if stats.AverageProductivity != 21 {
		t.Fatalf("averageProductivity = %d, want 21", stats.AverageProductivity)
	}
}
