// Package executor выполняет команды statement.Statement через driver.Driver.
//
// Каждый вызов берет собственное подключение и возвращает его на любом пути
// выхода. Query читает строки лениво: подключение и курсор освобождаются,
// когда итерация завершена, прервана потребителем или упала с ошибкой.
package executor

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/statement"
	"github.com/ruslano69/tablekit/pkg/driver"
	"github.com/ruslano69/tablekit/pkg/metrics"
)

// ErrSequenceConsumed возвращается при повторной итерации результата Query
var ErrSequenceConsumed = fmt.Errorf("%w: result sequence already consumed", errs.ErrUsage)

// Виды команд для метрик и логов
const (
	kindQuery  = "query"
	kindScalar = "scalar"
	kindExec   = "exec"
	kindInsert = "insert"
)

// Executor выполняет команды на одной базе данных
type Executor struct {
	driver driver.Driver
	logger zerolog.Logger
}

// Option настраивает Executor
type Option func(*Executor)

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New создает исполнителя команд
func New(d driver.Driver, opts ...Option) *Executor {
	e := &Executor{driver: d, logger: log.Logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dialect возвращает диалект драйвера
func (e *Executor) Dialect() dialect.Dialect {
	return e.driver.Dialect()
}

// Query возвращает ленивую последовательность записей.
// Последовательность одноразовая: повторная итерация отдает ErrSequenceConsumed.
func (e *Executor) Query(ctx context.Context, stmt statement.Statement) iter.Seq2[record.Record, error] {
	var consumed atomic.Bool
	return func(yield func(record.Record, error) bool) {
		if consumed.Swap(true) {
			yield(record.Record{}, ErrSequenceConsumed)
			return
		}

		err := e.scan(ctx, stmt, func(columns []string, values []record.Value) bool {
			rec := record.New()
			for i, col := range columns {
				rec.Set(col, values[i])
			}
			return yield(rec, nil)
		})
		if err != nil {
			yield(record.Record{}, err)
		}
	}
}

// Rows выполняет запрос и вызывает fn для каждой строки в порядке колонок результата.
// Возврат false из fn прекращает чтение без ошибки.
func (e *Executor) Rows(ctx context.Context, stmt statement.Statement, fn func(columns []string, values []record.Value) bool) error {
	return e.scan(ctx, stmt, fn)
}

func (e *Executor) scan(ctx context.Context, stmt statement.Statement, fn func([]string, []record.Value) bool) (err error) {
	started := time.Now()
	read := 0
	defer func() {
		metrics.ObserveStatement(kindQuery, started, err)
		metrics.AddRowsRead(read)
		e.logResult(kindQuery, stmt, started, int64(read), err)
	}()

	conn, err := e.driver.OpenConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	cmd, err := conn.Prepare(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return err
	}
	defer cmd.Close()

	rows, err := cmd.ExecuteReader(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns := rows.Columns()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return err
		}
		read++
		if !fn(columns, values) {
			return nil
		}
	}
	return rows.Err()
}

// Scalar возвращает первую колонку первой строки (NULL если строк нет)
func (e *Executor) Scalar(ctx context.Context, stmt statement.Statement) (v record.Value, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStatement(kindScalar, started, err)
		e.logResult(kindScalar, stmt, started, -1, err)
	}()

	conn, err := e.driver.OpenConnection(ctx)
	if err != nil {
		return record.Null(), err
	}
	defer conn.Close()

	cmd, err := conn.Prepare(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return record.Null(), err
	}
	defer cmd.Close()

	return cmd.ExecuteScalar(ctx)
}

// Execute выполняет команды по порядку в одной транзакции на одном подключении.
// Возвращает сумму затронутых строк. Любая ошибка откатывает транзакцию целиком.
func (e *Executor) Execute(ctx context.Context, stmts ...statement.Statement) (affected int64, err error) {
	if len(stmts) == 0 {
		return 0, nil
	}

	started := time.Now()
	defer func() {
		metrics.ObserveStatement(kindExec, started, err)
	}()

	conn, err := e.driver.OpenConnection(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	tx, err := conn.BeginTransaction(ctx)
	if err != nil {
		return 0, err
	}

	for _, stmt := range stmts {
		n, err := e.execOne(ctx, tx, stmt)
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				e.logger.Error().Err(rbErr).Msg("rollback failed")
			}
			return 0, err
		}
		affected += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	e.logger.Debug().Int("statements", len(stmts)).Int64("rows_affected", affected).
		Dur("duration", time.Since(started)).Msg("transaction committed")
	return affected, nil
}

func (e *Executor) execOne(ctx context.Context, p driver.Preparer, stmt statement.Statement) (int64, error) {
	started := time.Now()
	cmd, err := p.Prepare(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		e.logResult(kindExec, stmt, started, 0, err)
		return 0, err
	}
	defer cmd.Close()

	n, err := cmd.ExecuteNonQuery(ctx)
	e.logResult(kindExec, stmt, started, n, err)
	return n, err
}

// Insert выполняет INSERT и читает сгенерированный ключ на том же подключении.
// Пустой identity означает, что команда сама возвращает ключ (INSERT ... RETURNING).
func (e *Executor) Insert(ctx context.Context, stmt statement.Statement, identity string) (key record.Value, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStatement(kindInsert, started, err)
		e.logResult(kindInsert, stmt, started, 1, err)
	}()

	conn, err := e.driver.OpenConnection(ctx)
	if err != nil {
		return record.Null(), err
	}
	defer conn.Close()

	cmd, err := conn.Prepare(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return record.Null(), err
	}
	defer cmd.Close()

	if identity == "" {
		return cmd.ExecuteScalar(ctx)
	}

	if _, err := cmd.ExecuteNonQuery(ctx); err != nil {
		return record.Null(), err
	}

	idCmd, err := conn.Prepare(ctx, identity, nil)
	if err != nil {
		return record.Null(), err
	}
	defer idCmd.Close()

	return idCmd.ExecuteScalar(ctx)
}

// logResult пишет debug запись об успешной команде и error запись о неудачной.
// rows < 0 означает, что число строк неприменимо.
func (e *Executor) logResult(kind string, stmt statement.Statement, started time.Time, rows int64, err error) {
	if err != nil {
		e.logger.Error().Err(err).Str("kind", kind).Str("sql", stmt.SQL).
			Int("args", len(stmt.Args)).Msg("statement failed")
		return
	}
	ev := e.logger.Debug()
	if !ev.Enabled() {
		return
	}
	ev = ev.Str("kind", kind).Str("sql", stmt.SQL).Int("args", len(stmt.Args)).
		Dur("duration", time.Since(started))
	if rows >= 0 {
		ev = ev.Int64("rows", rows)
	}
	ev.Msg("statement executed")
}
