package main

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Set from Config in main; defaults keep handler tests self-contained.
var (
	bcryptCost  = 12
	jwtTTLHours = 24 * 7
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	lowerRe    = regexp.MustCompile(`[a-z]`)
	upperRe    = regexp.MustCompile(`[A-Z]`)
	digitRe    = regexp.MustCompile(`\d`)
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userDTO is the sanitized user payload returned to clients.
type userDTO struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName,omitempty"`
	LastName    string          `json:"lastName,omitempty"`
	Avatar      string          `json:"avatar,omitempty"`
	Preferences UserPreferences `json:"preferences"`
	Stats       UserStats       `json:"stats"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toUserDTO(u *User) userDTO {
	return userDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Avatar:      u.Avatar,
		Preferences: u.Preferences,
		Stats:       u.Stats,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func validatePassword(pw string) []fieldError {
	var errs []fieldError
	if len(pw) < 8 {
		errs = append(errs, fieldError{"password", "Password must be at least 8 characters long"})
	}
	if !lowerRe.MatchString(pw) || !upperRe.MatchString(pw) || !digitRe.MatchString(pw) {
		errs = append(errs, fieldError{"password", "Password must contain at least one uppercase letter, one lowercase letter, and one number"})
	}
	return errs
}

func validateRegistration(in *registerRequest) []fieldError {
	var errs []fieldError
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if len(in.Username) < 3 || len(in.Username) > 30 {
		errs = append(errs, fieldError{"username", "Username must be between 3 and 30 characters"})
	} else if !usernameRe.MatchString(in.Username) {
		errs = append(errs, fieldError{"username", "Username can only contain letters, numbers, underscores, and hyphens"})
	}
	if !emailRe.MatchString(in.Email) {
		errs = append(errs, fieldError{"email", "Please provide a valid email address"})
	}
	errs = append(errs, validatePassword(in.Password)...)
	if len(in.FirstName) > 50 {
		errs = append(errs, fieldError{"firstName", "First name cannot exceed 50 characters"})
	}
	if len(in.LastName) > 50 {
		errs = append(errs, fieldError{"lastName", "Last name cannot exceed 50 characters"})
	}
	return errs
}

// POST /api/auth/register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if errs := validateRegistration(&in); len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	var count int64
	if err := DB.Model(&User{}).Where("username = ? OR email = ?", in.Username, in.Email).Count(&count).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	if count > 0 {
		errorJSON(w, http.StatusConflict, "Username or email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	u := User{
		ID:           newID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Preferences:  defaultPreferences(),
		IsActive:     true,
	}
	if err := DB.Create(&u).Error; err != nil {
		log.Printf("[auth] register: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	tok, err := signToken(&u, jwtTTLHours)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"token":   tok,
		"user":    toUserDTO(&u),
	})
}

// POST /api/auth/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || in.Password == "" {
		validationJSON(w, []fieldError{{"email", "Email and password are required"}})
		return
	}

	var u User
	err := DB.Where("email = ?", in.Email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		errorJSON(w, http.StatusUnauthorized, "Email or password is incorrect")
		return
	} else if err != nil {
		errorJSON(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if !u.IsActive {
		errorJSON(w, http.StatusUnauthorized, "Account deactivated")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		errorJSON(w, http.StatusUnauthorized, "Email or password is incorrect")
		return
	}

	now := time.Now()
	u.LastLoginAt = &now
	if err := DB.Save(&u).Error; err != nil {
		log.Printf("[auth] last-login update: %v", err)
	}

	tok, err := signToken(&u, jwtTTLHours)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   tok,
		"user":    toUserDTO(&u),
	})
}

// GET /api/auth/profile
func handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(u)})
}

type profileUpdateRequest struct {
	FirstName   *string            `json:"firstName"`
	LastName    *string            `json:"lastName"`
	Avatar      *string            `json:"avatar"`
	Preferences *prefsUpdateFields `json:"preferences"`
}

type prefsUpdateFields struct {
	DefaultPomodoroDuration *int    `json:"defaultPomodoroDuration"`
	DefaultBreakDuration    *int    `json:"defaultBreakDuration"`
	AutoStartBreaks         *bool   `json:"autoStartBreaks"`
	AutoStartPomodoros      *bool   `json:"autoStartPomodoros"`
	SoundEnabled            *bool   `json:"soundEnabled"`
	NotificationsEnabled    *bool   `json:"notificationsEnabled"`
	Theme                   *string `json:"theme"`
}

func validateProfileUpdate(in *profileUpdateRequest) []fieldError {
	var errs []fieldError
	if in.FirstName != nil && len(strings.TrimSpace(*in.FirstName)) > 50 {
		errs = append(errs, fieldError{"firstName", "First name cannot exceed 50 characters"})
	}
	if in.LastName != nil && len(strings.TrimSpace(*in.LastName)) > 50 {
		errs = append(errs, fieldError{"lastName", "Last name cannot exceed 50 characters"})
	}
	if p := in.Preferences; p != nil {
		if p.DefaultPomodoroDuration != nil && (*p.DefaultPomodoroDuration < minSessionMinutes || *p.DefaultPomodoroDuration > maxSessionMinutes) {
			errs = append(errs, fieldError{"preferences.defaultPomodoroDuration", "Default pomodoro duration must be between 1 and 120 minutes"})
		}
		if p.DefaultBreakDuration != nil && (*p.DefaultBreakDuration < 1 || *p.DefaultBreakDuration > maxBreakMinutes) {
			errs = append(errs, fieldError{"preferences.defaultBreakDuration", "Default break duration must be between 1 and 60 minutes"})
		}
		if p.Theme != nil && *p.Theme != "light" && *p.Theme != "dark" && *p.Theme != "system" {
			errs = append(errs, fieldError{"preferences.theme", "Theme must be light, dark, or system"})
		}
	}
	return errs
}

// PUT /api/auth/profile
func handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var in profileUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if errs := validateProfileUpdate(&in); len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Avatar != nil {
		u.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if p := in.Preferences; p != nil {
		if p.DefaultPomodoroDuration != nil {
			u.Preferences.DefaultPomodoroDuration = *p.DefaultPomodoroDuration
		}
		if p.DefaultBreakDuration != nil {
			u.Preferences.DefaultBreakDuration = *p.DefaultBreakDuration
		}
		if p.AutoStartBreaks != nil {
			u.Preferences.AutoStartBreaks = *p.AutoStartBreaks
		}
		if p.AutoStartPomodoros != nil {
			u.Preferences.AutoStartPomodoros = *p.AutoStartPomodoros
		}
		if p.SoundEnabled != nil {
			u.Preferences.SoundEnabled = *p.SoundEnabled
		}
		if p.NotificationsEnabled != nil {
			u.Preferences.NotificationsEnabled = *p.NotificationsEnabled
		}
		if p.Theme != nil {
			u.Preferences.Theme = *p.Theme
		}
	}

	if err := DB.Save(u).Error; err != nil {
		log.Printf("[auth] profile update: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Profile update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    toUserDTO(u),
	})
}

// PUT /api/auth/change-password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	var errs []fieldError
	if in.CurrentPassword == "" {
		errs = append(errs, fieldError{"currentPassword", "Current password is required"})
	}
	for _, e := range validatePassword(in.NewPassword) {
		errs = append(errs, fieldError{"newPassword", e.Message})
	}
	if len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.CurrentPassword)) != nil {
		errorJSON(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcryptCost)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "Password change failed")
		return
	}
	u.PasswordHash = string(hash)
	if err := DB.Save(u).Error; err != nil {
		log.Printf("[auth] password change: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Password change failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Password changed successfully"})
}

// DELETE /api/auth/account
// Deactivates instead of deleting, so owned tasks and sessions survive a
// support-driven reactivation.
func handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var in struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if in.Password == "" {
		validationJSON(w, []fieldError{{"password", "Password is required for account deletion"}})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		errorJSON(w, http.StatusUnauthorized, "Password is incorrect")
		return
	}

	u.IsActive = false
	if err := DB.Save(u).Error; err != nil {
		log.Printf("[auth] account deactivation: %v", err)
		errorJSON(w, http.StatusInternalServerError, "Account deletion failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Account deactivated successfully"})
}
