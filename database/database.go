package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wanjiru/duka-backend/models"
)

// Connect opens the shared postgres store. TranslateError is on so
// duplicate-key failures surface as gorm.ErrDuplicatedKey regardless of
// driver, which the code-assignment retry relies on.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
