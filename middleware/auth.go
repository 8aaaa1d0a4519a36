package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"stationdesk/auth"
	"stationdesk/models"
	"stationdesk/store"
)

type contextKey string

const (
	UserContextKey    contextKey = "user"
	SessionContextKey contextKey = "session"
)

// AuthMiddleware validates access tokens and injects the user and session id into context.
// Pending and deactivated accounts are refused even with a valid token.
func AuthMiddleware(jwtManager *auth.JWTManager, accounts store.Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			token, err := auth.ExtractToken(authHeader)
			if err != nil {
				writeError(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.ValidateToken(token)
			if err != nil || claims.Refresh {
				writeError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Fetch user from the store to get latest role and stations
			user, err := accounts.User(r.Context(), claims.Email)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					log.Printf("❌ Failed to load user %s: %v", claims.Email, err)
				}
				writeError(w, "User not found", http.StatusUnauthorized)
				return
			}
			if !user.IsActive || user.Role == models.RolePending {
				writeError(w, "Account is not active", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), user, claims.SessionID)))
		})
	}
}

// WithViewer returns ctx carrying the authenticated user and session id.
func WithViewer(ctx context.Context, user *models.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, SessionContextKey, sessionID)
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// GetSessionFromContext retrieves the login session id from the request context
func GetSessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionContextKey).(string)
	return id, ok && id != ""
}

// RequireRole middleware checks if the user has the required role
func RequireRole(allowedRoles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok {
				writeError(w, "User not found in context", http.StatusUnauthorized)
				return
			}

			hasRole := false
			for _, role := range allowedRoles {
				if user.Role == role {
					hasRole = true
					break
				}
			}

			if !hasRole {
				writeError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
