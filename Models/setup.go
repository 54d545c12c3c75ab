package Models

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database and runs migrations. A MySQL DSN can be supplied
// through DB_DSN; otherwise a local sqlite file is used.
func Connect() {
	var connection *gorm.DB
	var err error
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		connection, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	} else {
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "database.db"
		}
		connection, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	DB = connection

	if err := Migrate(DB); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

// Migrate runs AutoMigrate in dependency order.
func Migrate(db *gorm.DB) error {
	// 1. Base tables with no dependencies
	if err := db.AutoMigrate(
		&User{},
		&FCMToken{},
	); err != nil {
		return err
	}

	// 2. Tables referencing users
	return db.AutoMigrate(
		&Task{},
		&TaskEvent{},
		&ManagementBudget{},
	)
}
