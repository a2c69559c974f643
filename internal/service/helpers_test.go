package service

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"contact-reminder/internal/repository"
)

func newTestContactService(t *testing.T) *ContactService {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewContactService(repository.NewUserRepository(db), repository.NewContactRepository(db))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustTime(t *testing.T, raw string) ReminderTime {
	t.Helper()
	at, err := ParseReminderTime(raw)
	if err != nil {
		t.Fatalf("ParseReminderTime(%q): %v", raw, err)
	}
	return at
}
