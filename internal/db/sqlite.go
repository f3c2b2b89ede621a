package db

import (
	"github.com/glebarez/sqlite"
	"github.com/kitflow/kitflow/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite database and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(
		&models.Account{},
		&models.Tag{},
		&models.Sequence{},
		&models.Subscriber{},
		&models.SubscriberTag{},
		&models.SubscriberSequence{},
		&models.JourneyFlow{},
		&models.AnalysisRun{},
	); err != nil {
		return nil, err
	}

	return database, nil
}
