// Package storetest opens throwaway SQLite databases for package tests.
package storetest

import (
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database private to t. The pool holds a
// single connection, so transactions from concurrent goroutines queue on it
// and never interleave. Tests that need a write inside another transaction's
// read-to-write gap inject it from within that transaction.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// OpenStore wraps Open in a store.Store.
func OpenStore(t testing.TB) (*store.Store, *gorm.DB) {
	t.Helper()
	db := Open(t)
	return store.New(db), db
}
