package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tablekit/pkg/adapters/sqlite"
	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/executor"
)

// recordingAppender запоминает записанные entries
type recordingAppender struct {
	mu      sync.Mutex
	entries []*Entry
	err     error
	closed  bool
}

func (r *recordingAppender) Append(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAppender) Close() error {
	r.closed = true
	return r.err
}

func TestEntry_Builder(t *testing.T) {
	entry := NewEntry(OpInsert, "customers").
		WithUser("test-user").
		WithKey("42").
		WithRecordsAffected(1).
		WithDuration(500 * time.Millisecond).
		WithFields(map[string]any{"name": "Ann"})

	if entry.ID == "" {
		t.Error("Expected generated ID")
	}
	if entry.Status != StatusSuccess {
		t.Errorf("Expected default status success, got %s", entry.Status)
	}
	if entry.User != "test-user" || entry.Key != "42" || entry.RecordsAffected != 1 {
		t.Errorf("Unexpected entry: %s", entry)
	}
}

func TestEntry_WithError(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		err      error
		expected Status
	}{
		{"nil error keeps success", StatusSuccess, nil, StatusSuccess},
		{"error marks failure", StatusSuccess, errors.New("boom"), StatusFailure},
		{"error keeps invalid", StatusInvalid, errors.New("name is required"), StatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := NewEntry(OpUpdate, "customers").WithStatus(tt.status).WithError(tt.err)
			if entry.Status != tt.expected {
				t.Errorf("Status = %s, want %s", entry.Status, tt.expected)
			}
			if tt.err != nil && entry.ErrorMessage != tt.err.Error() {
				t.Errorf("ErrorMessage = %q", entry.ErrorMessage)
			}
		})
	}
}

func TestEntry_FilterByLevel(t *testing.T) {
	entry := NewEntry(OpInsert, "customers").
		WithKey("7").
		WithFields(map[string]any{"password": "secret"})

	minimal := entry.FilterByLevel(LevelMinimal)
	if minimal.Key != "" || minimal.Fields != nil {
		t.Error("Minimal level should not include key or fields")
	}
	if minimal.Table != "customers" {
		t.Error("Minimal level should include table")
	}

	standard := entry.FilterByLevel(LevelStandard)
	if standard.Key != "7" || standard.Fields != nil {
		t.Error("Standard level should include key but not fields")
	}

	full := entry.FilterByLevel(LevelFull)
	if full.Fields["password"] != "secret" {
		t.Error("Full level should include fields")
	}

	full.Fields["password"] = "changed"
	if entry.Fields["password"] != "secret" {
		t.Error("Filtered copy must not share fields with the original")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelStandard, false},
		{"minimal", LevelMinimal, false},
		{"full", LevelFull, false},
		{"verbose", LevelStandard, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFileAppender_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.log")

	appender, err := NewFileAppender(FileAppenderConfig{
		FilePath:   path,
		Level:      LevelStandard,
		FormatJSON: true,
	})
	if err != nil {
		t.Fatalf("Failed to create file appender: %v", err)
	}

	ctx := context.Background()
	for _, op := range []Operation{OpInsert, OpUpdate, OpDelete} {
		entry := NewEntry(op, "customers").WithKey("1").WithFields(map[string]any{"name": "Ann"})
		if err := appender.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := appender.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open audit file: %v", err)
	}
	defer file.Close()

	var ops []Operation
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Line is not JSON: %v", err)
		}
		if entry.Fields != nil {
			t.Error("Standard level must not write fields")
		}
		ops = append(ops, entry.Operation)
	}
	if len(ops) != 3 || ops[0] != OpInsert || ops[2] != OpDelete {
		t.Errorf("Unexpected operations: %v", ops)
	}

	if err := appender.Append(ctx, NewEntry(OpInsert, "customers")); err == nil {
		t.Error("Append after Close should fail")
	}
}

func TestFileAppender_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	appender, err := NewFileAppender(FileAppenderConfig{
		FilePath:   path,
		MaxSize:    200,
		MaxBackups: 2,
		FormatJSON: true,
	})
	if err != nil {
		t.Fatalf("Failed to create file appender: %v", err)
	}
	defer appender.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := appender.Append(ctx, NewEntry(OpInsert, "customers")); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("Backups beyond MaxBackups must be removed")
	}
}

func TestZerologAppender(t *testing.T) {
	var buf bytes.Buffer
	appender := NewZerologAppender(zerolog.New(&buf), LevelFull)

	entry := NewEntry(OpDelete, "customers").WithKey("9").WithError(errors.New("constraint failed"))
	if err := appender.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if line["level"] != "warn" || line["operation"] != "delete" || line["key"] != "9" {
		t.Errorf("Unexpected log line: %v", line)
	}
	if line["error"] != "constraint failed" {
		t.Errorf("Expected error field, got %v", line["error"])
	}
}

func TestMultiAppender(t *testing.T) {
	good := &recordingAppender{}
	bad := &recordingAppender{err: errors.New("disk full")}
	other := &recordingAppender{}

	multi := NewMultiAppender(good, bad)
	multi.Add(other)

	err := multi.Append(context.Background(), NewEntry(OpInsert, "customers"))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected joined error, got %v", err)
	}
	if len(good.entries) != 1 || len(other.entries) != 1 {
		t.Error("Failure of one appender must not stop the others")
	}

	if err := multi.Close(); err == nil {
		t.Error("Expected close error from failing appender")
	}
	if !good.closed || !bad.closed || !other.closed {
		t.Error("All appenders should be closed")
	}
}

func TestAuditLogger_Log(t *testing.T) {
	rec := &recordingAppender{}
	var reported []error
	logger := NewLogger(LoggerConfig{
		DefaultUser: "system",
		OnError:     func(err error) { reported = append(reported, err) },
	}, rec)

	entry := &Entry{Operation: OpInsert, Table: "customers"}
	if err := logger.Log(context.Background(), entry); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if entry.User != "system" {
		t.Errorf("Expected default user, got %q", entry.User)
	}
	if entry.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}

	logger.AddAppender(&recordingAppender{err: errors.New("unavailable")})
	if err := logger.Log(context.Background(), NewEntry(OpDelete, "customers").WithUser("ann")); err == nil {
		t.Error("Expected appender error to be returned")
	}
	if len(reported) != 1 {
		t.Errorf("Expected OnError to be called once, got %d", len(reported))
	}
	if len(rec.entries) != 2 || rec.entries[1].User != "ann" {
		t.Error("Explicit user must be kept")
	}

	if err := logger.Log(context.Background(), nil); err == nil {
		t.Error("Expected error for nil entry")
	}
}

func TestNullLogger(t *testing.T) {
	var logger Logger = NullLogger{}
	if err := logger.Log(context.Background(), NewEntry(OpInsert, "t")); err != nil {
		t.Errorf("NullLogger.Log returned %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger.Close returned %v", err)
	}
}

func newDatabaseAppender(t *testing.T, level Level) *DatabaseAppender {
	t.Helper()
	ctx := context.Background()

	adapter, err := sqlite.NewAdapter(ctx, filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { adapter.Close(ctx) })

	appender, err := NewDatabaseAppender(ctx, DatabaseAppenderConfig{
		Executor:        executor.New(adapter),
		Level:           level,
		AutoCreateTable: true,
	})
	if err != nil {
		t.Fatalf("Failed to create database appender: %v", err)
	}
	return appender
}

func TestDatabaseAppender_SQLite(t *testing.T) {
	appender := newDatabaseAppender(t, LevelFull)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	entries := []*Entry{
		NewEntry(OpInsert, "customers").WithKey("1").WithRecordsAffected(1).WithFields(map[string]any{"name": "Ann"}),
		NewEntry(OpInsert, "customers").WithKey("2").WithRecordsAffected(1).WithDuration(1500 * time.Millisecond),
		NewEntry(OpDelete, "orders").WithKey("5").WithUser("ops").WithError(errors.New("constraint failed")),
	}
	for i, e := range entries {
		e.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := appender.Append(ctx, e); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	all, err := appender.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(all))
	}
	if all[0].ID != entries[2].ID {
		t.Error("Entries should be ordered newest first")
	}
	if all[0].User != "ops" || all[0].Status != StatusFailure || all[0].ErrorMessage != "constraint failed" {
		t.Errorf("Unexpected failure entry: %+v", all[0])
	}
	if all[1].Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", all[1].Duration)
	}
	if all[2].Fields["name"] != "Ann" {
		t.Errorf("Fields not round-tripped: %v", all[2].Fields)
	}
	if !all[2].Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", all[2].Timestamp, base)
	}

	tests := []struct {
		name     string
		filter   QueryFilter
		expected int64
	}{
		{"by operation", QueryFilter{Operation: OpInsert}, 2},
		{"by status", QueryFilter{Status: StatusFailure}, 1},
		{"by table", QueryFilter{Table: "orders"}, 1},
		{"by time range", QueryFilter{StartTime: base.Add(30 * time.Minute), EndTime: base.Add(90 * time.Minute)}, 1},
		{"combined", QueryFilter{Operation: OpInsert, Table: "orders"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := appender.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if n != tt.expected {
				t.Errorf("Count = %d, want %d", n, tt.expected)
			}
		})
	}

	limited, err := appender.Query(ctx, QueryFilter{Operation: OpInsert, Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(limited) != 1 || limited[0].Key != "2" {
		t.Errorf("Expected newest insert only, got %+v", limited)
	}
}

func TestDatabaseAppender_LevelAndRetention(t *testing.T) {
	appender := newDatabaseAppender(t, LevelMinimal)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	old := NewEntry(OpUpdate, "customers").WithKey("1").WithFields(map[string]any{"name": "Bob"})
	old.Timestamp = now.Add(-48 * time.Hour)
	recent := NewEntry(OpUpdate, "customers").WithKey("1")
	recent.Timestamp = now

	for _, e := range []*Entry{old, recent} {
		if err := appender.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	deleted, err := appender.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted entry, got %d", deleted)
	}

	left, err := appender.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(left) != 1 || left[0].ID != recent.ID {
		t.Fatalf("Expected only the recent entry, got %+v", left)
	}
	if left[0].Key != "" || left[0].Fields != nil {
		t.Error("Minimal level must not store key or fields")
	}
}

func TestCreateTableSQL(t *testing.T) {
	tests := []struct {
		name     string
		d        dialect.Dialect
		contains []string
	}{
		{"sqlite", dialect.SQLite, []string{"CREATE TABLE IF NOT EXISTS audit_log", "logged_at TIMESTAMP", "fields TEXT"}},
		{"postgres", dialect.Postgres, []string{"CREATE TABLE IF NOT EXISTS audit_log", "logged_at TIMESTAMP"}},
		{"mysql", dialect.MySQL, []string{"CREATE TABLE IF NOT EXISTS audit_log", "logged_at DATETIME"}},
		{"mssql", dialect.SQLServer, []string{"IF OBJECT_ID(N'audit_log', N'U') IS NULL CREATE TABLE audit_log", "logged_at DATETIME2", "fields NVARCHAR(MAX)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ddl := createTableSQL(tt.d, "audit_log")
			for _, part := range tt.contains {
				if !strings.Contains(ddl, part) {
					t.Errorf("DDL missing %q:\n%s", part, ddl)
				}
			}
		})
	}
}
