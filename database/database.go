package database

import (
	"fmt"
	"log"
	"strings"

	"vault/config"
	"vault/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection, migrates the models and
// populates the database with default values if needed
func InitDB() {
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=disable TimeZone=UTC",
		config.PostgresHost, config.PostgresPort, config.PostgresUser, config.PostgresDB, config.PostgresPassword)

	var err error
	// TranslateError turns unique index violations into gorm.ErrDuplicatedKey,
	// which the services layer relies on to arbitrate unlock races
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}

	err = DB.AutoMigrate(
		&models.Tape{},
		&models.UnlockRecord{},
		&models.GlobalEvent{},
		&models.EventCompletion{},
	)
	if err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	Populate()
}

// Populate seeds the tape archive from the VAULT_TAPES environment
// variable if the archive does not match it yet. Entry format:
// "slug|title|kind|puzzleID", comma separated; kind and puzzleID optional.
func Populate() {
	if config.Tapes == "" {
		return
	}

	for _, entry := range strings.Split(config.Tapes, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, "|")
		tape := models.Tape{Slug: parts[0], Title: parts[0], Kind: "tape"}
		if len(parts) > 1 && parts[1] != "" {
			tape.Title = parts[1]
		}
		if len(parts) > 2 && parts[2] != "" {
			tape.Kind = parts[2]
		}
		if len(parts) > 3 {
			tape.PuzzleID = parts[3]
		}

		// Update an existing tape in place, create it otherwise
		var existing models.Tape
		if err := DB.Where("slug = ?", tape.Slug).First(&existing).Error; err == nil {
			existing.Title = tape.Title
			existing.Kind = tape.Kind
			existing.PuzzleID = tape.PuzzleID
			DB.Save(&existing)
			log.Println("Tape updated: ", tape.Slug)
		} else {
			DB.Create(&tape)
			log.Println("Tape created: ", tape.Slug)
		}
	}
}
