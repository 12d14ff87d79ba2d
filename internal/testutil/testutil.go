package testutil

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/pkg/logger"
)

// NewTestDB opens an in-memory SQLite database. A single connection keeps
// every query on the same in-memory database.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// NewTestLogger returns a logger that only prints errors
func NewTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json", OutputPath: "stderr"})
}

// Day returns midnight UTC of the given date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewAlert builds an alert with the fields most tests care about
func NewAlert(id, title string, severity alert.Severity, status alert.Status, date time.Time) *alert.Alert {
	return &alert.Alert{
		ID:       id,
		Title:    title,
		Severity: severity,
		Status:   status,
		System:   "Web Server",
		Date:     date,
	}
}

// NewNotification builds an unread or read notification for userID
func NewNotification(id, userID string, read bool, createdAt time.Time) *notification.Notification {
	return &notification.Notification{
		ID:        id,
		UserID:    userID,
		Title:     "Notification " + id,
		Content:   "content",
		Type:      notification.TypeScan,
		IsRead:    read,
		CreatedAt: createdAt,
	}
}
