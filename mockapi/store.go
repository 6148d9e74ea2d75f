package mockapi

import (
	"fmt"
	"log"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"servigo-client/models"
)

// OpenStore opens (or creates) the sqlite database backing the development
// server and migrates the shared models. Use ":memory:" for tests.
func OpenStore(path string) (*gorm.DB, error) {
	db, err := gorm.Open(
		&gormsqlite.Dialector{
			DriverName: "sqlite",
			DSN:        path,
		},
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Booking{},
		&models.CompletionOTP{},
		&models.TrackingSession{},
		&models.TrackPoint{},
		&models.TransactionIssue{},
		&models.IssueMessage{},
		&models.IssueAttachment{},
		&models.Notification{},
	); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	log.Println("✅ Mock store ready:", path)
	return db, nil
}
