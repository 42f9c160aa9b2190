package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/whatsnominated/backend/internal/models"
	"gorm.io/gorm"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.AdminUser{}, &models.AuditLog{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestRecordWritesRow(t *testing.T) {
	conn := openMemory(t)
	rec := NewRecorder(conn, 90)

	rec.Record(context.Background(), Entry{
		Action:     "admin_login",
		Success:    false,
		ActorEmail: "admin@example.com",
		RequestIP:  "10.0.0.1",
		UserAgent:  "test-agent",
		Details:    map[string]any{"reason": "invalid_credentials"},
	})

	var row models.AuditLog
	if errFind := conn.First(&row).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if row.Action != "admin_login" || row.Success {
		t.Fatalf("unexpected row: %+v", row)
	}
	if string(row.Details) == "" || string(row.Details) == "null" {
		t.Fatalf("details not persisted: %q", string(row.Details))
	}
}

func TestRecordPrunesByRetention(t *testing.T) {
	conn := openMemory(t)
	rec := NewRecorder(conn, 90)

	old := models.AuditLog{Action: "admin_login", Success: true, CreatedAt: time.Now().UTC().AddDate(0, 0, -120)}
	recent := models.AuditLog{Action: "admin_login", Success: true, CreatedAt: time.Now().UTC().AddDate(0, 0, -5)}
	if errCreate := conn.Create(&old).Error; errCreate != nil {
		t.Fatalf("create old: %v", errCreate)
	}
	if errCreate := conn.Create(&recent).Error; errCreate != nil {
		t.Fatalf("create recent: %v", errCreate)
	}

	var before int64
	conn.Model(&models.AuditLog{}).Count(&before)
	if before != 2 {
		t.Fatalf("expected 2 rows before prune, got %d", before)
	}

	rec.Record(context.Background(), Entry{Action: "admin_logout", Success: true})

	var after int64
	conn.Model(&models.AuditLog{}).Count(&after)
	if after != 2 {
		t.Fatalf("expected old row pruned and new row written, got %d rows", after)
	}
	var stale int64
	conn.Model(&models.AuditLog{}).Where("created_at < ?", time.Now().UTC().AddDate(0, 0, -90)).Count(&stale)
	if stale != 0 {
		t.Fatalf("expected no rows older than retention, got %d", stale)
	}
}

func TestListFiltersAndHistogram(t *testing.T) {
	conn := openMemory(t)
	rec := NewRecorder(conn, 90)
	ctx := context.Background()

	rec.Record(ctx, Entry{Action: "admin_login", Success: true})
	rec.Record(ctx, Entry{Action: "admin_login", Success: false})
	rec.Record(ctx, Entry{Action: "admin_banner_update", Success: true})

	failed := false
	rows, actions, errList := rec.List(ctx, ListQuery{Action: "admin_login", Success: &failed})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(rows) != 1 || rows[0].Action != "admin_login" || rows[0].Success {
		t.Fatalf("unexpected filtered rows: %+v", rows)
	}

	counts := map[string]int64{}
	for _, a := range actions {
		counts[a.Action] = a.Count
	}
	if counts["admin_login"] != 2 || counts["admin_banner_update"] != 1 {
		t.Fatalf("unexpected histogram: %v", counts)
	}
}

func TestListClampsLimit(t *testing.T) {
	conn := openMemory(t)
	rec := NewRecorder(conn, 90)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec.Record(ctx, Entry{Action: "admin_login", Success: true})
	}
	rows, _, errList := rec.List(ctx, ListQuery{Limit: 2})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(rows) != 2 {
		t.Fatalf("limit not applied: %d rows", len(rows))
	}
	if _, _, errHuge := rec.List(ctx, ListQuery{Limit: 10000}); errHuge != nil {
		t.Fatalf("list with oversized limit: %v", errHuge)
	}
}
