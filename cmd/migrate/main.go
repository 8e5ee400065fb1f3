package main

import (
	"log"
	"os"

	"content-studio-be/internal/repository"
	"content-studio-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, os.Getenv("DB_VERBOSE") == "true")
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	st := repository.NewStudioStore(db)
	defer st.Close()

	log.Println("Step 1: Setting up Extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Printf("Warn: Failed to create uuid-ossp extension: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate for studio tables...")
	if err := st.Migrate(); err != nil {
		log.Fatalf("Error: Migration failed: %v", err)
	}

	log.Println("✅ Migration completed")
}
