package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func loadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Overload(p)
			log.Println("[env] loaded", p)
			return
		}
	}
}

func main() {
	loadDotenv()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	bcryptCost = cfg.BcryptCost
	jwtTTLHours = cfg.JWTTTLHours

	// Quieter GORM logger
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold: 1500 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)

	DB, err = openGorm(cfg.DatabaseURL, gLogger)
	if err != nil {
		log.Fatalf("[DB] connect failed: %v", err)
	}
	log.Println("[DB] connected")

	if err := autoMigrate(DB); err != nil {
		log.Fatalf("[DB] migrate failed: %v", err)
	}

	limits := NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	defer limits.Stop()
	authLimits := NewRateLimiter(cfg.RateLimitWindow, credentialBudget(cfg.RateLimitMax))
	defer authLimits.Stop()

	r := newRouter(cfg, limits, authLimits)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Println("API listening on", addr, "CORS_ORIGIN:", cfg.CORSOrigin)
	log.Fatal(srv.ListenAndServe())
}

func newRouter(cfg Config, limits, authLimits *RateLimiter) chi.Router {
	r := chi.NewRouter()

	// allow comma-separated list of origins
	var origins []string
	for _, p := range strings.Split(cfg.CORSOrigin, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// Finish bare OPTIONS quickly
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Use(limits.Middleware("api"))

	// Credential endpoints carry their own, smaller budget.
	r.Group(func(r chi.Router) {
		r.Use(authLimits.Middleware("auth"))
		r.Post("/api/auth/register", handleRegister)
		r.Post("/api/auth/login", handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/api/auth/profile", handleGetProfile)
		r.Put("/api/auth/profile", handleUpdateProfile)
		r.Put("/api/auth/change-password", handleChangePassword)
		r.Delete("/api/auth/account", handleDeleteAccount)

		// Tasks
		r.Get("/api/tasks", handleListTasks)
		r.Post("/api/tasks", handleCreateTask)
		r.Put("/api/tasks/{id}", handleUpdateTask)
		r.Delete("/api/tasks/{id}", handleDeleteTask)

		// Pomodoro sessions
		r.Get("/api/pomodoro-sessions", handleListSessions)
		r.Post("/api/pomodoro-sessions", handleCreateSession)
		r.Put("/api/pomodoro-sessions/{id}/complete", handleCompleteSession)
		r.Put("/api/pomodoro-sessions/{id}/interrupt", handleInterruptSession)

		// Weekly track record
		r.Get("/api/track-record", handleTrackRecord)
	})

	// Contact
	r.Post("/api/contact/send", handleContactSend(cfg))

	// Health & config
	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "OK",
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Get("/api/config", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, cfg.Summary())
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errorJSON(w, http.StatusNotFound, "Route not found")
	})

	return r
}
