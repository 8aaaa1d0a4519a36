package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"stationdesk/auth"
	"stationdesk/config"
	"stationdesk/db"
	"stationdesk/models"
	"stationdesk/stations"
	"stationdesk/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()
	if !cfg.UsesFirestore() {
		log.Fatal("Seeding needs Firestore; BACKEND=memory seeds itself at startup")
	}

	ctx := context.Background()
	firestoreDB, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer firestoreDB.Close()

	log.Println("🌱 Starting database seeding...")

	if err := seedUsers(ctx, firestoreDB); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	if err := seedTemplate(ctx, firestoreDB); err != nil {
		log.Fatalf("Failed to seed checklist template: %v", err)
	}

	// Task data lives in the spreadsheet when BACKEND=remote
	if cfg.Backend.Kind == config.BackendFirestore {
		if err := seedTasks(ctx, firestoreDB, cfg.Location()); err != nil {
			log.Fatalf("Failed to seed tasks: %v", err)
		}
	}

	log.Println("✅ Database seeding completed successfully!")
}

func seedUsers(ctx context.Context, firestoreDB *db.FirestoreDB) error {
	users := []models.User{
		{
			Email:           "admin@stationdesk.local",
			Name:            "系統管理員",
			Role:            models.RoleAdmin,
			AssignedStation: models.AllStations,
			IsActive:        true,
		},
		{
			Email:           "manager@stationdesk.local",
			Name:            "立體停車場主管",
			Role:            models.RoleManager3D,
			AssignedStation: models.AllStations,
			IsActive:        true,
		},
		{
			Email:           "baifu.operator@stationdesk.local",
			Name:            "百福值班",
			Role:            models.RoleOperator,
			AssignedStation: string(models.StationBaifu),
			IsActive:        true,
		},
	}

	for i := range users {
		u := &users[i]
		u.ForceChangePassword = true
		if err := firestoreDB.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrExists) {
				log.Printf("  - Skipped existing user: %s", u.Email)
				continue
			}
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}

		password, err := auth.GeneratePassword()
		if err != nil {
			return fmt.Errorf("failed to generate password for %s: %w", u.Email, err)
		}
		passwordHash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}
		if err := firestoreDB.StorePasswordHash(ctx, u.Email, passwordHash); err != nil {
			return fmt.Errorf("failed to store password for %s: %w", u.Email, err)
		}

		log.Printf("  ✓ Created user: %s (role: %s, password: %s)", u.Email, u.Role, password)
	}

	return nil
}

func seedTemplate(ctx context.Context, firestoreDB *db.FirestoreDB) error {
	current, err := firestoreDB.Template(ctx)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		log.Printf("  - Template already has %d items", len(current))
		return nil
	}

	items := []models.ChecklistItem{
		{ID: "fire-1", Category: "消防安全", Content: "滅火器壓力正常且在有效期限內"},
		{ID: "fire-2", Category: "消防安全", Content: "緊急出口標示燈正常"},
		{ID: "light-1", Category: "照明設備", Content: "車道照明無故障"},
		{ID: "elev-1", Category: "機電設備", Content: "電梯運轉正常無異音"},
		{ID: "clean-1", Category: "環境整潔", Content: "排水溝無堵塞"},
	}
	if err := firestoreDB.SaveTemplate(ctx, items); err != nil {
		return err
	}
	log.Printf("  ✓ Created checklist template (%d items)", len(items))
	return nil
}

func seedTasks(ctx context.Context, firestoreDB *db.FirestoreDB, loc *time.Location) error {
	existing, err := firestoreDB.Tasks(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Printf("  - %d tasks already present", len(existing))
		return nil
	}

	now := time.Now().In(loc)
	items := []struct {
		code, name string
		months     int
	}{
		{"A01", "消防安全設備檢修申報", 1},
		{"A02", "建築物公共安全檢查申報", 2},
		{"B01", "昇降設備安全檢查", 3},
	}
	for _, st := range stations.All() {
		for _, item := range items {
			task := models.Task{
				UID:         fmt.Sprintf("%s-%s", st.Code, item.code),
				StationCode: st.Code,
				StationName: st.Name,
				ItemCode:    item.code,
				ItemName:    item.name,
				Deadline:    now.AddDate(0, item.months, 0).Format("2006-01-02"),
				Status:      models.TaskPending,
				LastUpdated: now.Format(time.RFC3339),
			}
			if err := firestoreDB.CreateTask(ctx, task); err != nil {
				return fmt.Errorf("failed to create task %s: %w", task.UID, err)
			}
		}
		log.Printf("  ✓ Created %d tasks for %s", len(items), st.Name)
	}
	return nil
}
