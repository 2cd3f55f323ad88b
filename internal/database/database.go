package database

import (
	"fmt"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/config"
	logging "github.com/arpit9377/ssb-insight-ai-sub001/internal/logging"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(log *zap.Logger) {
	var err error
	dbConf := config.Conf.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	// Create our custom GORM logger
	gormLogger := logging.NewGormZapLogger(log)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})

	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database connection established successfully.")
	runMigrations(log)
}

func runMigrations(log *zap.Logger) {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// It will NOT create every index we rely on, so those are handled below.
	err := DB.AutoMigrate(
		&models.User{},
		&models.TestSession{},
		&models.Response{},
		&models.TraitScore{},
		&models.UsageLedgerEntry{},
		&models.DeviceFingerprint{},
	)
	if err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	// The response upsert (ON CONFLICT) requires this unique constraint.
	responseIndex := `CREATE UNIQUE INDEX IF NOT EXISTS idx_responses_session_prompt ON responses (session_id, prompt_key);`
	if err := DB.Exec(responseIndex).Error; err != nil {
		log.Fatal("Failed to create unique index on responses table", zap.Error(err))
	}

	traitIndex := `CREATE UNIQUE INDEX IF NOT EXISTS idx_trait_scores_session_category ON trait_scores (session_id, category);`
	if err := DB.Exec(traitIndex).Error; err != nil {
		log.Fatal("Failed to create unique index on trait_scores table", zap.Error(err))
	}
	log.Info("Custom indexes ensured successfully.")
}
