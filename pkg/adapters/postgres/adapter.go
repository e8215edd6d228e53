package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ruslano69/tablekit/pkg/adapters"
	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/driver"
)

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

// Регистрация адаптера в глобальной фабрике
func init() {
	adapters.Register("postgres", func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter представляет адаптер для работы с PostgreSQL.
// Работает напрямую через pgxpool, без database/sql.
type Adapter struct {
	pool    *pgxpool.Pool
	schema  string // public, custom, etc.
	dialect dialect.Dialect
}

// Connect устанавливает подключение к PostgreSQL
// Реализует интерфейс adapters.Adapter
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	// Парсим connection string
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Настраиваем pool из конфига
	if cfg.MaxConns > 0 {
		config.MaxConns = int32(cfg.MaxConns)
	} else {
		config.MaxConns = 10 // default
	}

	if cfg.MinConns > 0 {
		config.MinConns = int32(cfg.MinConns)
	} else {
		config.MinConns = 2 // default
	}

	// Создаем connection pool
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверяем подключение
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.pool = pool
	a.schema = cfg.Schema
	if a.schema == "" {
		a.schema = dialect.Postgres.DefaultSchema
	}
	a.dialect = dialect.Postgres
	a.dialect.DefaultSchema = a.schema

	return nil
}

// NewAdapter создает адаптер и подключается к PostgreSQL
func NewAdapter(ctx context.Context, connString string) (*Adapter, error) {
	adapter := &Adapter{}
	err := adapter.Connect(ctx, adapters.Config{
		Type: "postgres",
		DSN:  connString,
	})
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

// Dialect возвращает диалект PostgreSQL
// Реализует интерфейс driver.Driver
func (a *Adapter) Dialect() dialect.Dialect {
	return a.dialect
}

// OpenConnection берет подключение из пула
// Реализует интерфейс driver.Driver
func (a *Adapter) OpenConnection(ctx context.Context) (driver.Connection, error) {
	if a.pool == nil {
		return nil, errs.Driver("open connection", fmt.Errorf("adapter not connected"))
	}
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Driver("open connection", err)
	}
	return &pgConnection{conn: conn}, nil
}

// Close закрывает connection pool
// Реализует интерфейс adapters.Adapter
func (a *Adapter) Close(ctx context.Context) error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ping проверяет доступность БД
// Реализует интерфейс adapters.Adapter
func (a *Adapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.pool.Ping(ctx)
}

// GetDatabaseType возвращает тип СУБД
// Реализует интерфейс adapters.Adapter
func (a *Adapter) GetDatabaseType() string {
	return "postgres"
}

// Pool возвращает *pgxpool.Pool для прямого доступа
func (a *Adapter) Pool() *pgxpool.Pool {
	return a.pool
}

// Schema возвращает текущую схему
func (a *Adapter) Schema() string {
	return a.schema
}

// TableExists проверяет существование таблицы в текущей схеме
// Реализует интерфейс adapters.Adapter
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	schemaName, table := dialect.SplitTable(tableName)
	if schemaName == "" {
		schemaName = a.schema
	}

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = $1
			  AND table_name = $2
		)
	`

	var exists bool
	err := a.pool.QueryRow(ctx, query, schemaName, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return exists, nil
}

// GetTableNames возвращает список всех таблиц в текущей схеме
// Реализует интерфейс adapters.Adapter
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := a.pool.Query(ctx, query, a.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return tables, nil
}

// GetDatabaseVersion возвращает версию PostgreSQL
// Реализует интерфейс adapters.Adapter
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	var version string
	err := a.pool.QueryRow(ctx, "SELECT version()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}
