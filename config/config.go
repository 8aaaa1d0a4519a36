package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend kinds
const (
	BackendFirestore = "firestore"
	BackendRemote    = "remote"
	BackendMemory    = "memory"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Backend   BackendConfig
	Firebase  FirebaseConfig
	Remote    RemoteConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	DueSoon   DueSoonConfig
	Sweep     SweepConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
	Timezone    string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

// BackendConfig selects where tasks, submissions and logs live.
// Accounts always live in Firestore unless Kind is memory.
type BackendConfig struct {
	Kind string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
}

// RemoteConfig configures the spreadsheet backend.
type RemoteConfig struct {
	ScriptURL         string
	ServiceEmail      string
	Token             string
	UploadFolderID    string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type DueSoonConfig struct {
	ThresholdDays int
}

type SweepConfig struct {
	Enabled  bool
	Schedule string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
			Timezone:    getEnv("TIMEZONE", "Asia/Taipei"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-key"),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "30m"), 30*time.Minute),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "7d"), 7*24*time.Hour),
		},
		Backend: BackendConfig{
			Kind: strings.ToLower(getEnv("BACKEND", BackendFirestore)),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
		},
		Remote: RemoteConfig{
			ScriptURL:         getEnv("SCRIPT_URL", ""),
			ServiceEmail:      getEnv("SCRIPT_SERVICE_EMAIL", ""),
			Token:             getEnv("SCRIPT_TOKEN", ""),
			UploadFolderID:    getEnv("UPLOAD_FOLDER_ID", ""),
			Timeout:           parseDuration(getEnv("SCRIPT_TIMEOUT", "30s"), 30*time.Second),
			RequestsPerSecond: parseFloat(getEnv("SCRIPT_RPS", "5"), 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		DueSoon: DueSoonConfig{
			ThresholdDays: parseInt(getEnv("DUE_SOON_DAYS", "7"), 7),
		},
		Sweep: SweepConfig{
			Enabled:  getEnv("SWEEP_ENABLED", "true") == "true",
			Schedule: getEnv("SWEEP_SCHEDULE", "0 30 0 * * *"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseFloat(s string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	// Handle simple formats like "30m", "7d", "60"
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	// If it's just a number, assume seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Location returns the configured timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		log.Printf("⚠️  Unknown timezone %q, using local time", c.Server.Timezone)
		return time.Local
	}
	return loc
}

// UsesFirestore reports whether a Firestore client is needed.
func (c *Config) UsesFirestore() bool {
	return c.Backend.Kind != BackendMemory
}

func (c *Config) Validate() {
	if c.JWT.Secret == "dev-secret-key" && c.IsProduction() {
		log.Fatal("JWT_SECRET must be set in production")
	}
	switch c.Backend.Kind {
	case BackendFirestore, BackendRemote:
	case BackendMemory:
		if c.IsProduction() {
			log.Fatal("BACKEND=memory is not allowed in production")
		}
	default:
		log.Fatalf("Unknown BACKEND %q (want firestore, remote or memory)", c.Backend.Kind)
	}
	if c.Backend.Kind == BackendRemote && c.Remote.ScriptURL == "" {
		log.Fatal("SCRIPT_URL must be set when BACKEND=remote")
	}
	if c.UsesFirestore() {
		if c.Firebase.ProjectID == "" {
			log.Fatal("FIREBASE_PROJECT_ID must be set")
		}
		if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
			log.Fatalf("Firebase credentials file not found: %s", c.Firebase.CredentialsPath)
		}
	}
	if c.DueSoon.ThresholdDays < 0 {
		log.Fatal("DUE_SOON_DAYS must not be negative")
	}
}
