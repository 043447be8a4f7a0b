// database_utils should be the canonical place to put shared DB utils.
// It should not include:
// 1. Any util that doesn't manipulate DB
// 2. Any util that contains business logic
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Luismorlan/postwall/app_config"
	"github.com/Luismorlan/postwall/model"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestDBName = "postwall_test.db"
)

// GetDBConnection get a connection to the database specified by config.
func GetDBConnection(cfg *app_config.AppConfig) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case app_config.DBDriverSqlite:
		if dir := filepath.Dir(cfg.SqlitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "fail to create sqlite directory")
			}
		}
		return GetSqliteConnection(cfg.SqlitePath)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)
		return getDB(postgres.Open(dsn))
	}
}

// GetSqliteConnection opens a sqlite database file. SQLite allows a single
// writer, so the pool is capped at one connection and concurrent callers queue
// on the pool instead of failing with SQLITE_BUSY.
func GetSqliteConnection(path string) (*gorm.DB, error) {
	db, err := getDB(sqlite.Open(path + "?_busy_timeout=5000"))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func getDB(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Map driver specific unique violations onto gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
}

func DatabaseSetupAndMigration(db *gorm.DB) error {
	return db.AutoMigrate(&model.Handle{}, &model.Post{}, &model.DisplayedPost{})
}

// Create a temp DB for testing, note that this function should only be called
// in a testing environment with test state manager testing.T
// The database lives in t.TempDir() and is removed after each test case, user
// will not need to drop the database explicitly.
func CreateTempDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := GetSqliteConnection(filepath.Join(t.TempDir(), TestDBName))
	if err != nil {
		t.Fatalf("fail to create temp DB: %v", err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		t.Fatalf("fail to migrate temp DB: %v", err)
	}
	t.Cleanup(func() {
		// Proactively close the connection so the temp dir can be removed.
		conn, _ := db.DB()
		conn.Close()
	})
	return db
}
