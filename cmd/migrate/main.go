package main

import (
	"log"

	"ai-interviewer-be/internal/config"
	"ai-interviewer-be/pkg/database"
)

func main() {
	cfg := config.Load()

	driver := cfg.Database.Driver
	if driver == "" {
		driver = database.DriverPostgres
	}

	db, err := database.NewGormDB(database.GormConfig{
		Driver: driver,
		DSN:    cfg.Database.Connection,
	})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Printf("Running AutoMigrate on %s...", driver)
	if err := database.Migrate(db); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}
	log.Println("Migration completed successfully.")
}
