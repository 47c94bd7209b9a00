package db

import (
	"log"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database behind dsn and migrates the chat schema.
// DSNs starting with "file:" or ending in ".db" use sqlite, anything else MySQL.
func Connect(dsn string) *gorm.DB {
	gdb, err := Open(dsn)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	return gdb
}

func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if isSQLite(dsn) {
		return gorm.Open(gormsqlite.Open(dsn), cfg)
	}
	return gorm.Open(mysql.Open(dsn), cfg)
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.User{}, &chat.ChatRoom{}, &chat.Message{}, &chat.DictionaryEntry{}, &chat.RoomStat{})
}

func isSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:"
}
