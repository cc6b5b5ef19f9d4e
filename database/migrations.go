package database

import (
	"fmt"
	"log"

	"pagetags/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.SetupJoinTable(&models.Post{}, "Categories", &models.PostCategory{}); err != nil {
		log.Printf("Error setting up join table: %v", err)
		return fmt.Errorf("setup post_categories: %w", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
