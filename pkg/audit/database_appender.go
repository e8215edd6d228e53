package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/statement"
	"github.com/ruslano69/tablekit/pkg/executor"
)

const defaultAuditTable = "audit_log"

// auditColumns - колонки таблицы аудита в порядке выборки
const auditColumns = "id, logged_at, operation, status, user_name, table_name, record_key, " +
	"records_affected, duration_ms, error_message, fields"

// DatabaseAppender - запись в таблицу аудита той же базы данных.
// Команды строятся statement.Builder и выполняются через executor,
// поэтому работают на любом поддерживаемом диалекте.
type DatabaseAppender struct {
	exec    *executor.Executor
	builder *statement.Builder
	level   Level
}

// DatabaseAppenderConfig - конфигурация database appender
type DatabaseAppenderConfig struct {
	// Executor - исполнитель команд на целевой базе
	Executor *executor.Executor

	// TableName - имя таблицы для аудита (по умолчанию audit_log)
	TableName string

	// Level - уровень логирования
	Level Level

	// AutoCreateTable - автоматически создать таблицу если не существует
	AutoCreateTable bool
}

// NewDatabaseAppender - создать database appender
func NewDatabaseAppender(ctx context.Context, config DatabaseAppenderConfig) (*DatabaseAppender, error) {
	if config.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if config.TableName == "" {
		config.TableName = defaultAuditTable
	}

	da := &DatabaseAppender{
		exec:    config.Executor,
		builder: statement.NewBuilder(config.TableName, "id", config.Executor.Dialect()),
		level:   config.Level,
	}

	if config.AutoCreateTable {
		if err := da.createTable(ctx); err != nil {
			return nil, fmt.Errorf("failed to create audit table: %w", err)
		}
	}
	return da, nil
}

// createTable - создать таблицу для аудита
func (da *DatabaseAppender) createTable(ctx context.Context) error {
	d := da.exec.Dialect()
	table := da.builder.Table()

	stmt, err := statement.New(createTableSQL(d, table))
	if err != nil {
		return err
	}
	if _, err := da.exec.Execute(ctx, stmt); err != nil {
		return err
	}

	if d.Name == dialect.SQLite.Name || d.Name == dialect.Postgres.Name {
		index, err := statement.New(fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_logged_at ON %s(logged_at)",
			strings.ReplaceAll(table, ".", "_"), table))
		if err != nil {
			return err
		}
		// Индекс необязателен
		_, _ = da.exec.Execute(ctx, index)
	}
	return nil
}

// createTableSQL - DDL таблицы аудита для диалекта
func createTableSQL(d dialect.Dialect, table string) string {
	timestampType, textType := "TIMESTAMP", "TEXT"
	switch d.Name {
	case dialect.SQLServer.Name:
		timestampType, textType = "DATETIME2", "NVARCHAR(MAX)"
	case dialect.MySQL.Name:
		timestampType = "DATETIME"
	}

	columns := fmt.Sprintf(`(
	id VARCHAR(64) PRIMARY KEY,
	logged_at %[1]s NOT NULL,
	operation VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL,
	user_name VARCHAR(255),
	table_name VARCHAR(255) NOT NULL,
	record_key VARCHAR(255),
	records_affected BIGINT,
	duration_ms BIGINT,
	error_message %[2]s,
	fields %[2]s
)`, timestampType, textType)

	if d.Name == dialect.SQLServer.Name {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s %s", table, table, columns)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s", table, columns)
}

// Append - записать entry в базу данных
func (da *DatabaseAppender) Append(ctx context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(da.level)

	fields := record.Null()
	if len(filtered.Fields) > 0 {
		data, err := json.Marshal(filtered.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		fields = record.Text(string(data))
	}

	rec := record.New(
		record.F("id", filtered.ID),
		record.F("logged_at", filtered.Timestamp.UTC()),
		record.F("operation", string(filtered.Operation)),
		record.F("status", string(filtered.Status)),
		record.F("user_name", nullIfEmpty(filtered.User)),
		record.F("table_name", filtered.Table),
		record.F("record_key", nullIfEmpty(filtered.Key)),
		record.F("records_affected", filtered.RecordsAffected),
		record.F("duration_ms", filtered.Duration.Milliseconds()),
		record.F("error_message", nullIfEmpty(filtered.ErrorMessage)),
	)
	rec.Set("fields", fields)

	stmt, err := da.builder.BuildInsert(rec)
	if err != nil {
		return err
	}
	if _, err := da.exec.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Close - ничего не делает: подключениями владеет executor
func (da *DatabaseAppender) Close() error {
	return nil
}

// QueryFilter - фильтр для запроса audit entries
type QueryFilter struct {
	Operation Operation
	Status    Status
	User      string
	Table     string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// where - условие и значения для фильтра
func (f QueryFilter) where() (string, []record.Value) {
	var (
		conds []string
		args  []record.Value
	)
	add := func(cond string, v record.Value) {
		conds = append(conds, fmt.Sprintf(cond, len(args)))
		args = append(args, v)
	}

	if f.Operation != "" {
		add("operation = @%d", record.Text(string(f.Operation)))
	}
	if f.Status != "" {
		add("status = @%d", record.Text(string(f.Status)))
	}
	if f.User != "" {
		add("user_name = @%d", record.Text(f.User))
	}
	if f.Table != "" {
		add("table_name = @%d", record.Text(f.Table))
	}
	if !f.StartTime.IsZero() {
		add("logged_at >= @%d", record.Time(f.StartTime.UTC()))
	}
	if !f.EndTime.IsZero() {
		add("logged_at <= @%d", record.Time(f.EndTime.UTC()))
	}
	return strings.Join(conds, " AND "), args
}

// Query - запросить audit entries из базы, новые первыми
func (da *DatabaseAppender) Query(ctx context.Context, filter QueryFilter) ([]*Entry, error) {
	where, args := filter.where()
	stmt, err := da.builder.BuildSelect(statement.SelectSpec{
		Columns: auditColumns,
		Where:   where,
		OrderBy: "logged_at DESC",
		Limit:   filter.Limit,
		Args:    args,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0)
	for rec, err := range da.exec.Query(ctx, stmt) {
		if err != nil {
			return nil, fmt.Errorf("failed to query audit log: %w", err)
		}
		entries = append(entries, entryFromRecord(rec))
	}
	return entries, nil
}

// Count - подсчитать количество audit entries
func (da *DatabaseAppender) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := filter.where()
	stmt, err := da.builder.BuildAggregate(statement.Count, "*", where, args...)
	if err != nil {
		return 0, err
	}
	v, err := da.exec.Scalar(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	n, _ := v.AsInt()
	return n, nil
}

// DeleteOlderThan - удалить записи старше указанного времени
func (da *DatabaseAppender) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	stmt, err := da.builder.BuildDelete("logged_at < @0", record.Null(), record.Time(before.UTC()))
	if err != nil {
		return 0, err
	}
	n, err := da.exec.Execute(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old entries: %w", err)
	}
	return n, nil
}

func entryFromRecord(rec record.Record) *Entry {
	entry := &Entry{
		ID:           rec.Get("id").String(),
		Operation:    Operation(rec.Get("operation").String()),
		Status:       Status(rec.Get("status").String()),
		User:         rec.Get("user_name").String(),
		Table:        rec.Get("table_name").String(),
		Key:          rec.Get("record_key").String(),
		ErrorMessage: rec.Get("error_message").String(),
	}
	if ts, ok := rec.Get("logged_at").AsTime(); ok {
		entry.Timestamp = ts
	}
	if n, ok := rec.Get("records_affected").AsInt(); ok {
		entry.RecordsAffected = n
	}
	if ms, ok := rec.Get("duration_ms").AsInt(); ok {
		entry.Duration = time.Duration(ms) * time.Millisecond
	}
	if raw := rec.Get("fields").String(); raw != "" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err == nil {
			entry.Fields = fields
		}
	}
	return entry
}

func nullIfEmpty(s string) record.Value {
	if s == "" {
		return record.Null()
	}
	return record.Text(s)
}
