package main

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// Task statuses and priorities. The API only ever stores these values.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
	maxTagLen         = 20
	maxNotesLen       = 1000
	minSessionMinutes = 1
	maxSessionMinutes = 120
	maxBreakMinutes   = 60
	minEstimated      = 1
	maxEstimated      = 50
)

type Task struct {
	ID          string     `gorm:"primaryKey;type:text" json:"id"`
	UserID      string     `gorm:"index:idx_tasks_user_status_created,priority:1;index:idx_tasks_user_priority_due,priority:1;type:text;not null" json:"userId"`
	Title       string     `gorm:"type:varchar(100);not null" json:"title"`
	Description string     `gorm:"type:varchar(500)" json:"description,omitempty"`
	Status      string     `gorm:"index:idx_tasks_user_status_created,priority:2;type:text;not null;default:todo" json:"status"`
	Priority    string     `gorm:"index:idx_tasks_user_priority_due,priority:2;type:text;not null;default:medium" json:"priority"`
	DueDate     *time.Time `gorm:"index:idx_tasks_user_priority_due,priority:3;type:timestamptz" json:"dueDate,omitempty"`

	EstimatedPomodoros int `gorm:"not null;default:1" json:"estimatedPomodoros"`
	CompletedPomodoros int `gorm:"not null;default:0" json:"completedPomodoros"`

	Tags []string `gorm:"serializer:json;type:text" json:"tags,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_tasks_user_status_created,priority:3;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// normalize enforces the pomodoro-count invariants: completed never
// exceeds estimated, and a task whose pomodoros are all done is completed.
func (t *Task) normalize() {
	if t.EstimatedPomodoros > 0 && t.CompletedPomodoros > t.EstimatedPomodoros {
		t.CompletedPomodoros = t.EstimatedPomodoros
	}
	if t.EstimatedPomodoros > 0 && t.CompletedPomodoros >= t.EstimatedPomodoros && t.Status != StatusCompleted {
		t.Status = StatusCompleted
	}
}

func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.normalize()
	return nil
}

// MarkComplete completes the task and fills the pomodoro count.
func (t *Task) MarkComplete() {
	t.Status = StatusCompleted
	t.CompletedPomodoros = t.EstimatedPomodoros
}

// AddPomodoro credits one completed pomodoro, auto-completing the task
// when the estimate is reached. Session completion does not call this
// yet; attribution of sessions to task progress is pending product
// clarification.
func (t *Task) AddPomodoro() {
	if t.CompletedPomodoros < t.EstimatedPomodoros {
		t.CompletedPomodoros++
	}
	t.normalize()
}

func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return now.After(*t.DueDate)
}

func (t *Task) ProgressPercentage() float64 {
	if t.EstimatedPomodoros <= 0 {
		return 0
	}
	return math.Min(float64(t.CompletedPomodoros)/float64(t.EstimatedPomodoros)*100, 100)
}

func (Task) TableName() string { return "tasks" }

type PomodoroSession struct {
	ID     string  `gorm:"primaryKey;type:text" json:"id"`
	UserID string  `gorm:"index:idx_sessions_user_start,priority:1;type:text;not null" json:"userId"`
	TaskID *string `gorm:"index:idx_sessions_task_start,priority:1;type:text" json:"taskId,omitempty"`

	Duration  int        `gorm:"not null" json:"duration"` // minutes
	StartTime time.Time  `gorm:"index:idx_sessions_user_start,priority:2;index:idx_sessions_task_start,priority:2;type:timestamptz;not null" json:"startTime"`
	EndTime   *time.Time `gorm:"type:timestamptz" json:"endTime,omitempty"`
	Completed bool       `gorm:"index:idx_sessions_completed_start,priority:1;not null;default:false" json:"completed"`

	Notes         string `gorm:"type:varchar(1000)" json:"notes,omitempty"`
	Interruptions int    `gorm:"not null;default:0" json:"interruptions"`
	BreakDuration int    `gorm:"not null;default:0" json:"breakDuration"` // minutes

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// normalize auto-sets the end time of a completed session and keeps the
// break inside the session.
func (s *PomodoroSession) normalize(now time.Time) {
	if s.Completed && s.EndTime == nil {
		end := now
		if end.Before(s.StartTime) {
			end = s.StartTime
		}
		s.EndTime = &end
	}
	if s.BreakDuration > s.Duration {
		s.BreakDuration = s.Duration
	}
	if s.BreakDuration < 0 {
		s.BreakDuration = 0
	}
}

func (s *PomodoroSession) BeforeSave(tx *gorm.DB) error {
	s.normalize(time.Now())
	return nil
}

// Complete marks the session done, recording the end time and any notes.
// Completing an already-completed session is a no-op; the first end time
// stands.
func (s *PomodoroSession) Complete(notes string, now time.Time) {
	if s.Completed {
		return
	}
	s.Completed = true
	end := now
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	s.EndTime = &end
	if notes != "" {
		s.Notes = notes
	}
}

// Interrupt ends the session without completing it.
func (s *PomodoroSession) Interrupt(now time.Time) {
	end := now
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	s.EndTime = &end
	s.Interruptions++
}

func (s *PomodoroSession) SessionStatus() string {
	if s.Completed {
		return "completed"
	}
	if s.EndTime != nil {
		return "interrupted"
	}
	return "active"
}

// ActualDuration is the wall-clock minutes between start and end,
// falling back to the nominal duration while the session is open.
func (s *PomodoroSession) ActualDuration() int {
	if s.EndTime == nil {
		return s.Duration
	}
	return int(math.Round(s.EndTime.Sub(s.StartTime).Minutes()))
}

// Efficiency compares nominal duration against wall-clock time, capped
// at 100. Zero until the session is completed.
func (s *PomodoroSession) Efficiency() float64 {
	if !s.Completed || s.EndTime == nil {
		return 0
	}
	actual := s.ActualDuration()
	if actual == 0 {
		return 0
	}
	return math.Min(float64(s.Duration)/float64(actual)*100, 100)
}

func (PomodoroSession) TableName() string { return "pomodoro_sessions" }

func validStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusCompleted
}

func validPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
