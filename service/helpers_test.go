package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hemantmeena2005/chat/config"
	"github.com/hemantmeena2005/chat/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func mustUsers(t *testing.T, db *gorm.DB, names ...string) {
	t.Helper()
	svc := NewUserService(db)
	for _, n := range names {
		if _, err := svc.FindOrCreate(context.Background(), n); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
}
