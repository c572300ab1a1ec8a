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

type createTaskRequest struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	DueDate            *time.Time `json:"dueDate"`
	EstimatedPomodoros *int       `json:"estimatedPomodoros"`
	Tags               []string   `json:"tags"`
}

type updateTaskRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	Status             *string    `json:"status"`
	Priority           *string    `json:"priority"`
	DueDate            *time.Time `json:"dueDate"`
	EstimatedPomodoros *int       `json:"estimatedPomodoros"`
	CompletedPomodoros *int       `json:"completedPomodoros"`
	Tags               []string   `json:"tags"`
}

func validateTags(tags []string) (clean []string, errs []fieldError) {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(t) > maxTagLen {
			errs = append(errs, fieldError{"tags", "Tag cannot exceed 20 characters"})
			continue
		}
		clean = append(clean, t)
	}
	return clean, errs
}

func validateCreateTask(in *createTaskRequest) []fieldError {
	var errs []fieldError
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.Title == "" {
		errs = append(errs, fieldError{"title", "Task title is required"})
	} else if len(in.Title) > maxTitleLen {
		errs = append(errs, fieldError{"title", "Title cannot exceed 100 characters"})
	}
	if len(in.Description) > maxDescriptionLen {
		errs = append(errs, fieldError{"description", "Description cannot exceed 500 characters"})
	}
	if in.Status != "" && !validStatus(in.Status) {
		errs = append(errs, fieldError{"status", "Status must be one of: todo, in-progress, completed"})
	}
	if in.Priority != "" && !validPriority(in.Priority) {
		errs = append(errs, fieldError{"priority", "Priority must be one of: low, medium, high"})
	}
	if in.EstimatedPomodoros != nil && (*in.EstimatedPomodoros < minEstimated || *in.EstimatedPomodoros > maxEstimated) {
		errs = append(errs, fieldError{"estimatedPomodoros", "Estimated pomodoros must be between 1 and 50"})
	}
	var tagErrs []fieldError
	in.Tags, tagErrs = validateTags(in.Tags)
	return append(errs, tagErrs...)
}

// GET /api/tasks
func handleListTasks(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var tasks []Task
	if err := DB.Where("user_id = ?", u.ID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		log.Printf("[tasks] list: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to fetch tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// POST /api/tasks
func handleCreateTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var in createTaskRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if errs := validateCreateTask(&in); len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	task := Task{
		ID:                 newID(),
		UserID:             u.ID,
		Title:              in.Title,
		Description:        in.Description,
		Status:             StatusTodo,
		Priority:           PriorityMedium,
		DueDate:            in.DueDate,
		EstimatedPomodoros: 1,
		Tags:               in.Tags,
	}
	if in.Status != "" {
		task.Status = in.Status
	}
	if in.Priority != "" {
		task.Priority = in.Priority
	}
	if in.EstimatedPomodoros != nil {
		task.EstimatedPomodoros = *in.EstimatedPomodoros
	}

	if err := DB.Create(&task).Error; err != nil {
		log.Printf("[tasks] create: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	if err := updateUserStats(DB, u.ID, func(usr *User) {
		usr.Stats.TotalTasks++
		if task.Status == StatusCompleted {
			usr.Stats.TotalCompletedTasks++
			usr.touchActivity(time.Now())
		}
	}); err != nil {
		log.Printf("[tasks] stats update: %v", err)
	}

	writeJSON(w, http.StatusCreated, task)
}

// PUT /api/tasks/{id}
func handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id := chi.URLParam(r, "id")

	var in updateTaskRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var errs []fieldError
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			errs = append(errs, fieldError{"title", "Task title is required"})
		} else if len(t) > maxTitleLen {
			errs = append(errs, fieldError{"title", "Title cannot exceed 100 characters"})
		}
		*in.Title = t
	}
	if in.Description != nil && len(strings.TrimSpace(*in.Description)) > maxDescriptionLen {
		errs = append(errs, fieldError{"description", "Description cannot exceed 500 characters"})
	}
	if in.Status != nil && !validStatus(*in.Status) {
		errs = append(errs, fieldError{"status", "Status must be one of: todo, in-progress, completed"})
	}
	if in.Priority != nil && !validPriority(*in.Priority) {
		errs = append(errs, fieldError{"priority", "Priority must be one of: low, medium, high"})
	}
	if in.EstimatedPomodoros != nil && (*in.EstimatedPomodoros < minEstimated || *in.EstimatedPomodoros > maxEstimated) {
		errs = append(errs, fieldError{"estimatedPomodoros", "Estimated pomodoros must be between 1 and 50"})
	}
	if in.CompletedPomodoros != nil && *in.CompletedPomodoros < 0 {
		errs = append(errs, fieldError{"completedPomodoros", "Completed pomodoros cannot be negative"})
	}
	var tagErrs []fieldError
	if in.Tags != nil {
		in.Tags, tagErrs = validateTags(in.Tags)
		errs = append(errs, tagErrs...)
	}
	if len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	// Ownership is part of the query; a foreign id looks like a missing one.
	var task Task
	err := DB.Where("id = ? AND user_id = ?", id, u.ID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		errorJSON(w, http.StatusNotFound, "Task not found")
		return
	} else if err != nil {
		log.Printf("[tasks] update lookup: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	wasCompleted := task.Status == StatusCompleted

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.EstimatedPomodoros != nil {
		task.EstimatedPomodoros = *in.EstimatedPomodoros
	}
	if in.CompletedPomodoros != nil {
		task.CompletedPomodoros = *in.CompletedPomodoros
	}
	if in.Tags != nil {
		task.Tags = in.Tags
	}

	if err := DB.Save(&task).Error; err != nil {
		log.Printf("[tasks] update: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	// normalize may have auto-completed the task, so compare post-save.
	if nowCompleted := task.Status == StatusCompleted; nowCompleted != wasCompleted {
		if err := updateUserStats(DB, u.ID, func(usr *User) {
			if nowCompleted {
				usr.Stats.TotalCompletedTasks++
				usr.touchActivity(time.Now())
			} else {
				usr.Stats.TotalCompletedTasks--
			}
		}); err != nil {
			log.Printf("[tasks] stats update: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, task)
}

// DELETE /api/tasks/{id}
func handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id := chi.URLParam(r, "id")

	var task Task
	err := DB.Where("id = ? AND user_id = ?", id, u.ID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		errorJSON(w, http.StatusNotFound, "Task not found")
		return
	} else if err != nil {
		log.Printf("[tasks] delete lookup: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	if err := DB.Delete(&task).Error; err != nil {
		log.Printf("[tasks] delete: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	if err := updateUserStats(DB, u.ID, func(usr *User) {
		usr.Stats.TotalTasks--
		if task.Status == StatusCompleted {
			usr.Stats.TotalCompletedTasks--
		}
	}); err != nil {
		log.Printf("[tasks] stats update: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Task deleted successfully"})
}
