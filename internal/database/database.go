// Package database owns the SQLite connection and schema migration. Query
// logic lives in the per-aggregate repository subpackages.
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"booktracker/internal/entities"
)

var defaultSettings = map[string]string{
	entities.SettingKeyWIPLimit: "5",
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	// Foreign keys are off by default in SQLite; the ledger and membership
	// cascades depend on them.
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	database := &Database{DB: db}

	if err := database.seedSettings(); err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

// Migrate creates or updates the schema for all entities.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.Book{},
		&entities.LibraryEntry{},
		&entities.ReadingSession{},
		&entities.Note{},
		&entities.Tag{},
		&entities.LearningPath{},
		&entities.LearningPathBook{},
		&entities.Setting{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedSettings() error {
	for key, value := range defaultSettings {
		var existing entities.Setting
		result := d.DB.Where("key = ?", key).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&entities.Setting{Key: key, Value: value}).Error; err != nil {
				return fmt.Errorf("failed to create setting %s: %w", key, err)
			}
			log.Printf("Seeded setting %s=%s", key, value)
		}
	}
	return nil
}
