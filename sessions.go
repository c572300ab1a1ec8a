package main

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type createSessionRequest struct {
	Duration  int        `json:"duration"` // minutes
	TaskID    *string    `json:"taskId"`
	Notes     string     `json:"notes"`
	StartTime *time.Time `json:"startTime"`
}

func validateCreateSession(in *createSessionRequest) []fieldError {
	var errs []fieldError
	if in.Duration < minSessionMinutes || in.Duration > maxSessionMinutes {
		errs = append(errs, fieldError{"duration", "Duration must be between 1 and 120 minutes"})
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if len(in.Notes) > maxNotesLen {
		errs = append(errs, fieldError{"notes", "Notes cannot exceed 1000 characters"})
	}
	return errs
}

// GET /api/pomodoro-sessions?from=RFC3339&to=RFC3339
func handleListSessions(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	q := DB.Where("user_id = ?", u.ID)
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			validationJSON(w, []fieldError{{"from", "Invalid RFC 3339 timestamp"}})
			return
		}
		q = q.Where("start_time >= ?", t)
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			validationJSON(w, []fieldError{{"to", "Invalid RFC 3339 timestamp"}})
			return
		}
		q = q.Where("start_time <= ?", t)
	}

	var sessions []PomodoroSession
	if err := q.Order("start_time DESC").Find(&sessions).Error; err != nil {
		log.Printf("[sessions] list: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to fetch pomodoro sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// POST /api/pomodoro-sessions
func handleCreateSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var in createSessionRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if errs := validateCreateSession(&in); len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	// A linked task must belong to the caller.
	if in.TaskID != nil && *in.TaskID != "" {
		var count int64
		if err := DB.Model(&Task{}).Where("id = ? AND user_id = ?", *in.TaskID, u.ID).Count(&count).Error; err != nil {
			errorJSON(w, http.StatusInternalServerError, "Failed to create pomodoro session")
			return
		}
		if count == 0 {
			errorJSON(w, http.StatusNotFound, "Task not found")
			return
		}
	} else {
		in.TaskID = nil
	}

	start := time.Now()
	if in.StartTime != nil {
		start = *in.StartTime
	}
	session := PomodoroSession{
		ID:        newID(),
		UserID:    u.ID,
		TaskID:    in.TaskID,
		Duration:  in.Duration,
		StartTime: start,
		Notes:     in.Notes,
	}
	if err := DB.Create(&session).Error; err != nil {
		log.Printf("[sessions] create: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to create pomodoro session")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// PUT /api/pomodoro-sessions/{id}/complete
func handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id := chi.URLParam(r, "id")

	var in struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &in); err != nil {
			errorJSON(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if len(in.Notes) > maxNotesLen {
		validationJSON(w, []fieldError{{"notes", "Notes cannot exceed 1000 characters"}})
		return
	}

	var session PomodoroSession
	err := DB.Where("id = ? AND user_id = ?", id, u.ID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		errorJSON(w, http.StatusNotFound, "Session not found")
		return
	} else if err != nil {
		log.Printf("[sessions] complete lookup: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to complete session")
		return
	}

	if session.Completed {
		errorJSON(w, http.StatusConflict, "Session is already completed")
		return
	}

	session.Complete(in.Notes, time.Now())
	if err := DB.Save(&session).Error; err != nil {
		log.Printf("[sessions] complete: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to complete session")
		return
	}

	if err := updateUserStats(DB, u.ID, func(usr *User) {
		usr.Stats.TotalPomodoros++
		usr.Stats.TotalFocusTime += session.Duration
	}); err != nil {
		log.Printf("[sessions] stats update: %v", err)
	}

	writeJSON(w, http.StatusOK, session)
}

// PUT /api/pomodoro-sessions/{id}/interrupt
func handleInterruptSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id := chi.URLParam(r, "id")

	var session PomodoroSession
	err := DB.Where("id = ? AND user_id = ?", id, u.ID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		errorJSON(w, http.StatusNotFound, "Session not found")
		return
	} else if err != nil {
		log.Printf("[sessions] interrupt lookup: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to interrupt session")
		return
	}
	if session.Completed {
		errorJSON(w, http.StatusConflict, "Session is already completed")
		return
	}

	session.Interrupt(time.Now())
	if err := DB.Save(&session).Error; err != nil {
		log.Printf("[sessions] interrupt: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to interrupt session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}
