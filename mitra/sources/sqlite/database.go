// mitra/sources/sqlite/database.go
package sqlite

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (or creates) the embedded cache database and migrates
// the cache tables.
func NewDatabase(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&CachedSession{}, &CachedMessage{}); err != nil {
		return nil, err
	}
	return &Database{DB: db}, nil
}
