package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"stationdesk/audit"
	"stationdesk/auth"
	"stationdesk/middleware"
	"stationdesk/models"
	"stationdesk/session"
	"stationdesk/store"
)

type AuthHandler struct {
	accounts   store.Accounts
	jwtManager *auth.JWTManager
	sessions   *session.Registry
	audit      *audit.Logger
	now        Clock
}

func NewAuthHandler(accounts store.Accounts, jwtManager *auth.JWTManager, sessions *session.Registry, auditLog *audit.Logger, now Clock) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		jwtManager: jwtManager,
		sessions:   sessions,
		audit:      auditLog,
		now:        now,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Login handles user authentication and starts a new session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	email := store.NormalizeEmail(req.Email)

	user, err := h.accounts.User(r.Context(), email)
	if err != nil {
		log.Printf("Login failed for user %s: %v", email, err)
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	passwordHash, err := h.accounts.PasswordHash(r.Context(), email)
	if err != nil {
		log.Printf("Login failed for user %s: password hash not found", email)
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := auth.CheckPassword(req.Password, passwordHash); err != nil {
		log.Printf("Login failed for user %s: invalid password", email)
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if user.Role == models.RolePending || !user.IsActive {
		writeError(w, "Account is waiting for approval", http.StatusForbidden)
		return
	}

	user.LastLogin = h.now()
	if err := h.accounts.UpdateUser(r.Context(), user); err != nil {
		log.Printf("Warning: failed to update last login for user %s: %v", email, err)
	}

	sessionID := uuid.NewString()
	token, err := h.jwtManager.GenerateToken(user, sessionID)
	if err != nil {
		log.Printf("Failed to generate token for user %s: %v", email, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(user, sessionID)
	if err != nil {
		log.Printf("Failed to generate refresh token for user %s: %v", email, err)
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	h.sessions.Start(sessionID, h.now())
	h.audit.Record(r.Context(), email, models.ActionLogin, "", "")
	log.Printf("✅ User logged in: %s (role: %s)", email, user.Role)

	writeJSON(w, LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RefreshTokenResponse struct {
	Token string `json:"token"`
}

// RefreshToken issues a new access token within the same session
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req RefreshTokenRequest
	if !decode(w, r, &req) {
		return
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil || !claims.Refresh {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user, err := h.accounts.User(r.Context(), claims.Email)
	if err != nil {
		writeError(w, "User not found", http.StatusUnauthorized)
		return
	}
	if user.Role == models.RolePending || !user.IsActive {
		writeError(w, "Account is not active", http.StatusForbidden)
		return
	}

	token, err := h.jwtManager.GenerateToken(user, claims.SessionID)
	if err != nil {
		log.Printf("Failed to generate token for user %s: %v", user.Email, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, RefreshTokenResponse{Token: token})
}

type RegisterRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Organization string `json:"organization" validate:"max=100"`
}

// Register records an account request; an admin must approve it before login
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	user := &models.User{
		Email:        store.NormalizeEmail(req.Email),
		Name:         req.Name,
		Organization: req.Organization,
		Role:         models.RolePending,
		IsActive:     false,
	}
	if err := h.accounts.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrExists) {
			writeError(w, "Email is already registered", http.StatusConflict)
			return
		}
		log.Printf("❌ Failed to register user: %v", err)
		writeError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), user.Email, models.ActionRegister, "", user.Name+" ("+user.Organization+")")

	writeJSONStatus(w, http.StatusCreated, map[string]string{"message": "Registration received, waiting for approval"})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword replaces the viewer's password and clears the forced-change flag
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	hash, err := h.accounts.PasswordHash(r.Context(), user.Email)
	if err != nil || auth.CheckPassword(req.CurrentPassword, hash) != nil {
		writeError(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}
	if err := auth.ValidatePasswordStrength(req.NewPassword); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.accounts.StorePasswordHash(r.Context(), user.Email, newHash); err != nil {
		log.Printf("❌ Failed to store password: %v", err)
		writeError(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	user.ForceChangePassword = false
	if err := h.accounts.UpdateUser(r.Context(), user); err != nil {
		log.Printf("Warning: failed to clear forced password change for %s: %v", user.Email, err)
	}

	h.audit.Record(r.Context(), user.Email, models.ActionChangePassword, "", "")
	log.Printf("🔑 Password changed by %s", user.Email)

	writeJSON(w, map[string]string{"message": "Password changed successfully"})
}

// sessionID returns the viewer's session or an empty string.
func sessionID(r *http.Request) string {
	id, _ := middleware.GetSessionFromContext(r.Context())
	return id
}
