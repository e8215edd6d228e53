package base

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/driver"
)

// Compile-time checks
var (
	_ driver.Driver      = (*SQLDriver)(nil)
	_ driver.Connection  = (*sqlConnection)(nil)
	_ driver.Transaction = (*sqlTransaction)(nil)
	_ driver.Statement   = (*sqlStatement)(nil)
	_ driver.Rows        = (*sqlRows)(nil)
)

// SQLDriver реализует driver.Driver поверх *sql.DB
type SQLDriver struct {
	db        *sql.DB
	dialect   dialect.Dialect
	converter *TypeConverter
	logger    zerolog.Logger
}

// NewSQLDriver создает драйвер для открытой базы данных
func NewSQLDriver(db *sql.DB, d dialect.Dialect, converter *TypeConverter) *SQLDriver {
	if converter == nil {
		converter = NewTypeConverter(d.Name)
	}
	return &SQLDriver{db: db, dialect: d, converter: converter, logger: log.Logger}
}

// SetLogger задает логгер драйвера
func (d *SQLDriver) SetLogger(l zerolog.Logger) {
	d.logger = l
}

// Dialect возвращает диалект
func (d *SQLDriver) Dialect() dialect.Dialect {
	return d.dialect
}

// OpenConnection выделяет подключение из пула *sql.DB
func (d *SQLDriver) OpenConnection(ctx context.Context) (driver.Connection, error) {
	if d.db == nil {
		return nil, errs.Driver("open connection", errors.New("adapter not connected"))
	}
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, errs.Driver("open connection", err)
	}
	return &sqlConnection{conn: conn, driver: d}, nil
}

// querier - общее подмножество *sql.Conn и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// bind переписывает плейсхолдеры и конвертирует значения для драйвера
func (d *SQLDriver) bind(q querier, query string, args []record.Value) (driver.Statement, error) {
	rebound, bound, err := d.dialect.Rebind(query, args)
	if err != nil {
		return nil, errs.Driver("prepare", err)
	}
	for i, a := range bound {
		bound[i] = d.converter.ToDriver(a)
	}
	return &sqlStatement{q: q, sql: rebound, args: bound, converter: d.converter, logger: &d.logger}, nil
}

type sqlConnection struct {
	conn   *sql.Conn
	driver *SQLDriver
}

func (c *sqlConnection) Prepare(_ context.Context, query string, args []record.Value) (driver.Statement, error) {
	return c.driver.bind(c.conn, query, args)
}

func (c *sqlConnection) BeginTransaction(ctx context.Context) (driver.Transaction, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Driver("begin transaction", err)
	}
	return &sqlTransaction{tx: tx, driver: c.driver}, nil
}

func (c *sqlConnection) Close() error {
	return c.conn.Close()
}

type sqlTransaction struct {
	tx     *sql.Tx
	driver *SQLDriver
}

func (t *sqlTransaction) Prepare(_ context.Context, query string, args []record.Value) (driver.Statement, error) {
	return t.driver.bind(t.tx, query, args)
}

func (t *sqlTransaction) Commit(context.Context) error {
	return errs.Driver("commit", t.tx.Commit())
}

func (t *sqlTransaction) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return errs.Driver("rollback", err)
}

// sqlStatement - команда с привязанными значениями.
// Серверная подготовка не выполняется: каждая команда исполняется один раз.
type sqlStatement struct {
	q         querier
	sql       string
	args      []any
	converter *TypeConverter
	logger    *zerolog.Logger
}

func (s *sqlStatement) ExecuteNonQuery(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, s.sql, s.args...)
	if err != nil {
		return 0, errs.Driver("execute", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Не все драйверы сообщают число строк
		s.logger.Debug().Err(err).Str("sql", s.sql).Msg("rows affected not reported")
		return 0, nil
	}
	return n, nil
}

func (s *sqlStatement) ExecuteScalar(ctx context.Context) (record.Value, error) {
	rows, err := s.ExecuteReader(ctx)
	if err != nil {
		return record.Null(), err
	}
	defer rows.Close()

	if !rows.Next() {
		return record.Null(), rows.Err()
	}
	values, err := rows.Values()
	if err != nil {
		return record.Null(), err
	}
	if len(values) == 0 {
		return record.Null(), nil
	}
	return values[0], nil
}

func (s *sqlStatement) ExecuteReader(ctx context.Context) (driver.Rows, error) {
	rows, err := s.q.QueryContext(ctx, s.sql, s.args...)
	if err != nil {
		return nil, errs.Driver("query", err)
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, errs.Driver("read columns", err)
	}

	typeNames := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			if i < len(typeNames) {
				typeNames[i] = ct.DatabaseTypeName()
			}
		}
	}

	return &sqlRows{rows: rows, columns: columns, typeNames: typeNames, converter: s.converter}, nil
}

func (s *sqlStatement) Close() error {
	return nil
}

type sqlRows struct {
	rows      *sql.Rows
	columns   []string
	typeNames []string
	converter *TypeConverter
}

func (r *sqlRows) Columns() []string {
	return r.columns
}

func (r *sqlRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlRows) Values() ([]record.Value, error) {
	raw := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, errs.Driver("scan row", err)
	}

	values := make([]record.Value, len(raw))
	for i, v := range raw {
		values[i] = r.converter.ToValue(v, r.typeNames[i])
	}
	return values, nil
}

func (r *sqlRows) Err() error {
	return errs.Driver("iterate rows", r.rows.Err())
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}

// TableNames выполняет запрос, возвращающий имена в первой колонке
func TableNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
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
	return tables, rows.Err()
}
