package main

import (
	"time"

	"gorm.io/gorm"
)

// User is the persisted auth user record. Handlers convert this to a
// sanitized DTO for the client; the password hash never leaves the server.
type User struct {
	ID           string `gorm:"primaryKey;type:text" json:"id"`
	Username     string `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;size:320;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	FirstName    string `gorm:"size:50" json:"firstName,omitempty"`
	LastName     string `gorm:"size:50" json:"lastName,omitempty"`
	Avatar       string `gorm:"type:text" json:"avatar,omitempty"`

	Preferences UserPreferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	Stats       UserStats       `gorm:"embedded;embeddedPrefix:stat_" json:"stats"`

	IsActive    bool       `gorm:"not null;default:true" json:"isActive"`
	LastLoginAt *time.Time `gorm:"type:timestamptz" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type UserPreferences struct {
	DefaultPomodoroDuration int    `gorm:"not null;default:25" json:"defaultPomodoroDuration"`
	DefaultBreakDuration    int    `gorm:"not null;default:5" json:"defaultBreakDuration"`
	AutoStartBreaks         bool   `gorm:"not null;default:false" json:"autoStartBreaks"`
	AutoStartPomodoros      bool   `gorm:"not null;default:false" json:"autoStartPomodoros"`
	SoundEnabled            bool   `gorm:"not null;default:true" json:"soundEnabled"`
	NotificationsEnabled    bool   `gorm:"not null;default:true" json:"notificationsEnabled"`
	Theme                   string `gorm:"type:text;not null;default:system" json:"theme"`
}

type UserStats struct {
	TotalPomodoros      int        `gorm:"not null;default:0" json:"totalPomodoros"`
	TotalTasks          int        `gorm:"not null;default:0" json:"totalTasks"`
	TotalCompletedTasks int        `gorm:"not null;default:0" json:"totalCompletedTasks"`
	TotalFocusTime      int        `gorm:"not null;default:0" json:"totalFocusTime"` // minutes
	CurrentStreak       int        `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak       int        `gorm:"not null;default:0" json:"longestStreak"`
	LastActiveDate      *time.Time `gorm:"type:timestamptz" json:"lastActiveDate,omitempty"`
}

func defaultPreferences() UserPreferences {
	return UserPreferences{
		DefaultPomodoroDuration: 25,
		DefaultBreakDuration:    5,
		SoundEnabled:            true,
		NotificationsEnabled:    true,
		Theme:                   "system",
	}
}

// normalize enforces the stats invariants: completed tasks never exceed
// totals, longest streak never falls below the current one, and no
// counter goes negative.
func (u *User) normalize() {
	s := &u.Stats
	for _, n := range []*int{&s.TotalPomodoros, &s.TotalTasks, &s.TotalCompletedTasks, &s.TotalFocusTime, &s.CurrentStreak, &s.LongestStreak} {
		if *n < 0 {
			*n = 0
		}
	}
	if s.TotalCompletedTasks > s.TotalTasks {
		s.TotalCompletedTasks = s.TotalTasks
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.normalize()
	return nil
}

// CompletionRate is the percentage of the user's tasks that reached
// completed status.
func (u *User) CompletionRate() int {
	if u.Stats.TotalTasks == 0 {
		return 0
	}
	return int(float64(u.Stats.TotalCompletedTasks)/float64(u.Stats.TotalTasks)*100 + 0.5)
}

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// touchActivity advances the day-streak bookkeeping. Days are calendar
// dates in the location of the supplied time: same-day activity is a
// no-op, next-day activity extends the streak, a gap resets it.
func (u *User) touchActivity(now time.Time) {
	loc := now.Location()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var prev time.Time
	if last := u.Stats.LastActiveDate; last != nil {
		lt := last.In(loc)
		prev = time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	}
	switch {
	case prev.IsZero():
		u.Stats.CurrentStreak = 1
	case prev.Equal(day):
		// already counted today
	case prev.AddDate(0, 0, 1).Equal(day):
		u.Stats.CurrentStreak++
	default:
		u.Stats.CurrentStreak = 1
	}
	u.Stats.LastActiveDate = &day
	u.normalize()
}

// updateUserStats loads the owning user, applies fn to its stats, and
// saves. Invariants are re-enforced by BeforeSave.
func updateUserStats(db *gorm.DB, userID string, fn func(*User)) error {
	var u User
	if err := db.First(&u, "id = ?", userID).Error; err != nil {
		return err
	}
	fn(&u)
	return db.Save(&u).Error
}

func (User) TableName() string { return "users" }
