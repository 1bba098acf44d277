package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/authors"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/genres"
	"github.com/mrlokans/library/internal/database/instances"
	"github.com/mrlokans/library/internal/database/languages"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

type Database struct {
	DB *gorm.DB

	Authors   *authors.Repository
	Books     *books.Repository
	Genres    *genres.Repository
	Languages *languages.Repository
	Instances *instances.Repository
	Users     *users.Repository
	Audit     *audit.Repository
}

func NewDatabase(dbPath string, debug bool) (*Database, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database, err := newDatabase(db)
	if err != nil {
		return nil, err
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func withDB(db *gorm.DB) *Database {
	return &Database{
		DB:        db,
		Authors:   authors.NewRepository(db),
		Books:     books.NewRepository(db),
		Genres:    genres.NewRepository(db),
		Languages: languages.NewRepository(db),
		Instances: instances.NewRepository(db),
		Users:     users.NewRepository(db),
		Audit:     audit.NewRepository(db),
	}
}

// Transaction runs fn with repositories bound to one transaction. Returning
// an error rolls everything back. Repository methods that open their own
// transaction nest inside it.
func (d *Database) Transaction(fn func(tx *Database) error) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		return fn(withDB(tx))
	})
}

// newDatabase migrates and seeds an already opened connection.
func newDatabase(db *gorm.DB) (*Database, error) {
	if err := db.AutoMigrate(entities.Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := withDB(db)

	if err := database.seedPermissions(); err != nil {
		return nil, fmt.Errorf("failed to seed permissions: %w", err)
	}

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity for health reporting.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) seedPermissions() error {
	for _, perm := range entities.DefaultPermissions {
		var existing entities.Permission
		err := d.DB.Where("codename = ?", perm.Codename).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		perm := perm
		if err := d.DB.Create(&perm).Error; err != nil {
			return fmt.Errorf("failed to create permission %s: %w", perm.Codename, err)
		}
		log.Printf("Created permission: %s", perm.Codename)
	}
	return nil
}
