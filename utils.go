package main

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "message": msg})
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validationJSON(w http.ResponseWriter, details []fieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "Validation failed",
		"message": "Please check your input",
		"details": details,
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
