package main

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const userKey ctxKey = iota

// requireAuth resolves the bearer token to a live user and stores the
// record in the request context. Missing, invalid, or expired tokens and
// deactivated accounts all fail with 401.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			errorJSON(w, http.StatusUnauthorized, "Access token required")
			return
		}
		claims, err := parseToken(token)
		if err != nil {
			errorJSON(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		var u User
		if err := DB.First(&u, "id = ?", claims.UserID).Error; err != nil {
			errorJSON(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if !u.IsActive {
			errorJSON(w, http.StatusUnauthorized, "Account deactivated")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, &u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// currentUser returns the authenticated user attached by requireAuth.
func currentUser(r *http.Request) *User {
	u, _ := r.Context().Value(userKey).(*User)
	return u
}
