package database

import (
	"fmt"
	"log"

	"owatch/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs automatic migrations against the given database handle
func Migrate(db *gorm.DB) error {
	// Identity models first
	identityModels := []interface{}{
		&models.Profile{},
		&models.Wallet{},
	}

	for _, model := range identityModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Video and ledger models
	rewardModels := []interface{}{
		&models.RewardVideo{},
		&models.VideoProgress{},
		&models.PointEntry{},
	}

	for _, model := range rewardModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Token and staking models
	tokenModels := []interface{}{
		&models.ClaimTransaction{},
		&models.StakingPool{},
		&models.StakingPosition{},
	}

	for _, model := range tokenModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
