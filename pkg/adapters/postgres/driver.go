package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/driver"
)

// Compile-time checks
var (
	_ driver.Driver      = (*Adapter)(nil)
	_ driver.Connection  = (*pgConnection)(nil)
	_ driver.Transaction = (*pgTransaction)(nil)
	_ driver.Statement   = (*pgStatement)(nil)
	_ driver.Rows        = (*pgRows)(nil)
)

// querier - общее подмножество *pgxpool.Conn и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func bind(q querier, query string, args []record.Value) (driver.Statement, error) {
	rebound, bound, err := dialect.Postgres.Rebind(query, args)
	if err != nil {
		return nil, errs.Driver("prepare", err)
	}
	return &pgStatement{q: q, sql: rebound, args: bound}, nil
}

type pgConnection struct {
	conn *pgxpool.Conn
}

func (c *pgConnection) Prepare(_ context.Context, query string, args []record.Value) (driver.Statement, error) {
	return bind(c.conn, query, args)
}

func (c *pgConnection) BeginTransaction(ctx context.Context) (driver.Transaction, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, errs.Driver("begin transaction", err)
	}
	return &pgTransaction{tx: tx}, nil
}

func (c *pgConnection) Close() error {
	c.conn.Release()
	return nil
}

type pgTransaction struct {
	tx pgx.Tx
}

func (t *pgTransaction) Prepare(_ context.Context, query string, args []record.Value) (driver.Statement, error) {
	return bind(t.tx, query, args)
}

func (t *pgTransaction) Commit(ctx context.Context) error {
	return errs.Driver("commit", t.tx.Commit(ctx))
}

func (t *pgTransaction) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return errs.Driver("rollback", err)
}

type pgStatement struct {
	q    querier
	sql  string
	args []any
}

func (s *pgStatement) ExecuteNonQuery(ctx context.Context) (int64, error) {
	tag, err := s.q.Exec(ctx, s.sql, s.args...)
	if err != nil {
		return 0, errs.Driver("execute", err)
	}
	return tag.RowsAffected(), nil
}

func (s *pgStatement) ExecuteScalar(ctx context.Context) (record.Value, error) {
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

func (s *pgStatement) ExecuteReader(ctx context.Context) (driver.Rows, error) {
	rows, err := s.q.Query(ctx, s.sql, s.args...)
	if err != nil {
		return nil, errs.Driver("query", err)
	}

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	oids := make([]uint32, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
		oids[i] = f.DataTypeOID
	}
	return &pgRows{rows: rows, columns: columns, oids: oids}, nil
}

func (s *pgStatement) Close() error {
	return nil
}

type pgRows struct {
	rows    pgx.Rows
	columns []string
	oids    []uint32
}

func (r *pgRows) Columns() []string {
	return r.columns
}

func (r *pgRows) Next() bool {
	return r.rows.Next()
}

func (r *pgRows) Values() ([]record.Value, error) {
	raw, err := r.rows.Values()
	if err != nil {
		return nil, errs.Driver("scan row", err)
	}
	values := make([]record.Value, len(raw))
	for i, v := range raw {
		var oid uint32
		if i < len(r.oids) {
			oid = r.oids[i]
		}
		values[i] = toValue(v, oid)
	}
	return values, nil
}

func (r *pgRows) Err() error {
	return errs.Driver("iterate rows", r.rows.Err())
}

func (r *pgRows) Close() error {
	r.rows.Close()
	return nil
}

// toValue конвертирует значение pgx в record.Value
func toValue(v any, oid uint32) record.Value {
	switch x := v.(type) {
	case nil:
		return record.Null()
	case [16]byte:
		// UUID
		return record.Text(uuid.UUID(x).String())
	case pgtype.Numeric:
		return numericValue(x)
	case time.Time:
		if oid == pgtype.DateOID {
			return record.Date(x)
		}
		return record.Time(x)
	default:
		return record.Of(v)
	}
}

// numericValue сохраняет точность NUMERIC: целое в пределах int64 - Int,
// дробное и длинное значение - текст в десятичной записи, NaN и бесконечности - Float.
func numericValue(n pgtype.Numeric) record.Value {
	if !n.Valid {
		return record.Null()
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return record.Null()
		}
		return record.Float(f.Float64)
	}
	if n.Exp >= 0 {
		if i, err := n.Int64Value(); err == nil && i.Valid {
			return record.Int(i.Int64)
		}
	}
	v, err := n.Value()
	if err != nil {
		return record.Null()
	}
	text, ok := v.(string)
	if !ok {
		return record.Null()
	}
	return record.Text(text)
}
