// main.go
// StationDesk API - facility compliance dashboard
// Serves task progress, monthly inspections and abnormality alerts for the parking stations

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stationdesk/audit"
	"stationdesk/auth"
	"stationdesk/config"
	"stationdesk/db"
	"stationdesk/handlers"
	"stationdesk/middleware"
	"stationdesk/models"
	"stationdesk/remote"
	"stationdesk/session"
	"stationdesk/store"
	"stationdesk/sweep"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	log.Printf("🚀 Starting StationDesk API Server")
	log.Printf("📍 Environment: %s", cfg.Server.Environment)
	log.Printf("🔧 Port: %s, backend: %s, timezone: %s", cfg.Server.Port, cfg.Backend.Kind, loc)

	ctx := context.Background()
	backend, accounts, closeStores := openStores(ctx, cfg)
	defer closeStores()

	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	log.Printf("🔐 JWT Manager initialized (expiration: %v)", cfg.JWT.Expiration)

	sessions := session.NewRegistry(cfg.JWT.RefreshTokenExpiration)
	auditLog := audit.New(backend, now)

	authHandler := handlers.NewAuthHandler(accounts, jwtManager, sessions, auditLog, now)
	taskHandler := handlers.NewTaskHandler(backend, sessions, auditLog, now, cfg.DueSoon.ThresholdDays)
	checklistHandler := handlers.NewChecklistHandler(backend, auditLog, now)
	adminHandler := handlers.NewAdminHandler(accounts, backend, auditLog, now)
	log.Printf("✅ Handlers initialized")

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters()
	log.Printf("🛡️  Rate limiter initialized (%d requests per %v)", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	var sweeper *sweep.Sweeper
	if cfg.Sweep.Enabled {
		sweeper = sweep.New(backend, sessions, loc, cfg.DueSoon.ThresholdDays)
		if err := sweeper.Start(cfg.Sweep.Schedule); err != nil {
			log.Fatalf("❌ Failed to schedule sweep: %v", err)
		}
	}

	mux := http.NewServeMux()

	// Public routes (no authentication required)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/refresh", authHandler.RefreshToken)
	mux.HandleFunc("/api/register", authHandler.Register)

	// Protected routes (authentication required)
	authMiddleware := middleware.AuthMiddleware(jwtManager, accounts)
	protect := func(h http.HandlerFunc, roles ...models.UserRole) http.Handler {
		var next http.Handler = h
		if len(roles) > 0 {
			next = middleware.RequireRole(roles...)(next)
		}
		return authMiddleware(next)
	}
	adminOrManager := []models.UserRole{models.RoleAdmin, models.RoleManager3D}

	mux.Handle("/api/password", protect(authHandler.ChangePassword))

	// Task endpoints
	mux.Handle("/api/dashboard", protect(taskHandler.Dashboard))
	mux.Handle("/api/tasks", protect(taskHandler.List))
	mux.Handle("/api/tasks/history", protect(taskHandler.History))
	mux.Handle("/api/tasks/due-soon", protect(taskHandler.DueSoon))
	mux.Handle("/api/tasks/logs", protect(taskHandler.Logs))
	mux.Handle("/api/tasks/update", protect(taskHandler.Update))
	mux.Handle("/api/tasks/export", protect(taskHandler.Export))
	mux.Handle("/api/attachments", protect(taskHandler.Attachment))

	// Checklist and alert endpoints
	mux.Handle("/api/checklist/submissions", protect(checklistHandler.Submissions))
	mux.Handle("/api/checklist/series", protect(checklistHandler.Series))
	mux.Handle("/api/checklist/template", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			protect(checklistHandler.Template).ServeHTTP(w, r)
			return
		}
		protect(checklistHandler.SaveTemplate, adminOrManager...).ServeHTTP(w, r)
	}))
	mux.Handle("/api/checklist/submit", protect(checklistHandler.Submit, adminOrManager...))
	mux.Handle("/api/alerts", protect(checklistHandler.Alerts))
	mux.Handle("/api/alerts/resolve", protect(checklistHandler.ResolveAlert, adminOrManager...))

	// Admin endpoints (reads for managers, writes for admins)
	mux.Handle("/api/admin/users", protect(adminHandler.GetUsers, adminOrManager...))
	mux.Handle("/api/admin/users/approve", protect(adminHandler.ApproveUser, models.RoleAdmin))
	mux.Handle("/api/admin/users/update", protect(adminHandler.UpdateUser, models.RoleAdmin))
	mux.Handle("/api/admin/tasks/create", protect(adminHandler.CreateTask, models.RoleAdmin))
	mux.Handle("/api/admin/logs", protect(adminHandler.GetLogs, adminOrManager...))
	mux.Handle("/api/admin/logs/export", protect(adminHandler.ExportLogs, adminOrManager...))

	// Apply global middleware
	handler := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)
	handler = rateLimiter.Middleware()(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✅ Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// openStores connects the configured data backend and the account store.
func openStores(ctx context.Context, cfg *config.Config) (store.Backend, store.Accounts, func()) {
	if cfg.Backend.Kind == config.BackendMemory {
		mem := store.NewMemory()
		seedDevAdmin(ctx, mem)
		log.Printf("⚠️  Using in-memory store; data is lost on restart")
		return mem, mem, func() {}
	}

	firestoreDB, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Firestore: %v", err)
	}
	closeDB := func() {
		if err := firestoreDB.Close(); err != nil {
			log.Printf("Warning: failed to close Firestore: %v", err)
		}
	}

	if cfg.Backend.Kind == config.BackendRemote {
		client := remote.NewClient(remote.Config{
			ScriptURL:         cfg.Remote.ScriptURL,
			ServiceEmail:      cfg.Remote.ServiceEmail,
			Token:             cfg.Remote.Token,
			UploadFolderID:    cfg.Remote.UploadFolderID,
			Timeout:           cfg.Remote.Timeout,
			RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		})
		log.Printf("🔗 Spreadsheet backend at %s (%.1f req/s)", cfg.Remote.ScriptURL, cfg.Remote.RequestsPerSecond)
		return client, firestoreDB, closeDB
	}

	return firestoreDB, firestoreDB, closeDB
}

// seedDevAdmin creates an admin account for the in-memory store and logs its password.
func seedDevAdmin(ctx context.Context, mem *store.Memory) {
	admin := &models.User{
		Email:           "admin@stationdesk.local",
		Name:            "Administrator",
		Role:            models.RoleAdmin,
		AssignedStation: models.AllStations,
		IsActive:        true,
	}
	password, err := auth.GeneratePassword()
	if err != nil {
		log.Fatalf("❌ Failed to generate admin password: %v", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("❌ Failed to hash admin password: %v", err)
	}
	if err := mem.CreateUser(ctx, admin); err != nil {
		log.Fatalf("❌ Failed to create admin: %v", err)
	}
	if err := mem.StorePasswordHash(ctx, admin.Email, hash); err != nil {
		log.Fatalf("❌ Failed to store admin password: %v", err)
	}
	log.Printf("🔑 Development admin: %s / %s", admin.Email, password)
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
