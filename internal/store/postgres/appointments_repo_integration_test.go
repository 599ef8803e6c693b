package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"agendado/backend/internal/domain"
	"agendado/backend/internal/store"
)

func TestPostgresIntegration_AppointmentLifecycle(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("AGENDADO_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("AGENDADO_TEST_DATABASE_URL not set")
	}

	// A single connection keeps the session-scoped search_path in effect.
	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "agendado_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cleanupCancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(cleanupCtx)
	})

	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema error: %v", err)
	}
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path error: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations error: %v", err)
	}

	repo := NewAppointmentRepo(db)

	date1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	date5 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	date10 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	a1, err := repo.Create(ctx, domain.Appointment{
		ProfessionalID: 1,
		ClientID:       2,
		Date:           date1,
		StartTime:      "09:00:00-03:00",
		EndTime:        "10:00:00-03:00",
		Title:          "first",
		Color:          domain.DefaultColor,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if a1.ID == 0 {
		t.Fatalf("expected store-assigned id")
	}
	if a1.Cancelled {
		t.Fatalf("created row must not be cancelled")
	}

	a5, err := repo.Create(ctx, domain.Appointment{
		ProfessionalID: 1,
		ClientID:       2,
		Date:           date5,
		StartTime:      "08:00:00-03:00",
		EndTime:        "09:00:00-03:00",
		Title:          "second",
		Color:          domain.DefaultColor,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := repo.Create(ctx, domain.Appointment{
		ProfessionalID: 1,
		ClientID:       2,
		Date:           date10,
		StartTime:      "09:00:00-03:00",
		EndTime:        "10:00:00-03:00",
		Title:          "third",
		Color:          domain.DefaultColor,
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rows, err := repo.ListByProfessionalAndRange(ctx, 1, date1, date5)
	if err != nil {
		t.Fatalf("ListByProfessionalAndRange error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows in [date1, date5] = %d, want 2 (inclusive bounds)", len(rows))
	}
	if rows[0].ID != a1.ID || rows[1].ID != a5.ID {
		t.Fatalf("ordering = [%d, %d], want date ascending [%d, %d]", rows[0].ID, rows[1].ID, a1.ID, a5.ID)
	}

	updated, err := repo.UpdateDetails(ctx, a1.ID, "renamed", "notes", "#FFAA00")
	if err != nil {
		t.Fatalf("UpdateDetails error: %v", err)
	}
	if updated.Title != "renamed" || updated.Description != "notes" || updated.Color != "#FFAA00" {
		t.Fatalf("updated fields = (%q, %q, %q)", updated.Title, updated.Description, updated.Color)
	}
	if updated.ProfessionalID != a1.ProfessionalID || !sameDate(updated.Date, a1.Date) || updated.StartTime != a1.StartTime {
		t.Fatalf("edit must not change professional, date or times: %+v", updated)
	}

	cancelledAt := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	cancelled, err := repo.Cancel(ctx, a5.ID, cancelledAt)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if !cancelled.Cancelled || cancelled.CancelledAt == nil {
		t.Fatalf("cancelled row = %+v, want flag and timestamp set", cancelled)
	}

	rows, err = repo.ListByProfessionalAndRange(ctx, 1, date1, date5)
	if err != nil {
		t.Fatalf("ListByProfessionalAndRange error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != a1.ID {
		t.Fatalf("post-cancel rows = %+v, want only the first appointment", rows)
	}

	// The row survives cancellation in the table itself.
	var count int
	if err := db.NewRaw("SELECT count(*) FROM appointments WHERE id = ?", a5.ID).Scan(ctx, &count); err != nil {
		t.Fatalf("count error: %v", err)
	}
	if count != 1 {
		t.Fatalf("cancelled row missing from table")
	}

	all, err := repo.ListByProfessional(ctx, 1)
	if err != nil {
		t.Fatalf("ListByProfessional error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unbounded listing = %d rows, want 2 non-cancelled", len(all))
	}

	if _, err := repo.UpdateDetails(ctx, 999999, "x", "", "#FFFFFF"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateDetails missing id err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Cancel(ctx, 999999, cancelledAt); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Cancel missing id err = %v, want ErrNotFound", err)
	}
}

func sameDate(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
