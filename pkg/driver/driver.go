// Package driver описывает узкий интерфейс к драйверу БД, через который
// работает слой доступа к данным: открыть подключение, подготовить команду,
// выполнить ее, прочитать строки, управлять транзакцией.
//
// SQL на входе Prepare содержит плейсхолдеры @0, @1, … ; реализация сама
// переписывает их в стиль своего драйвера (см. dialect.Dialect.Rebind).
package driver

import (
	"context"

	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/record"
)

// Driver открывает подключения к одной базе данных
type Driver interface {
	// OpenConnection выделяет подключение. Вызывающий обязан его закрыть.
	OpenConnection(ctx context.Context) (Connection, error)

	// Dialect возвращает диалект SQL базы данных
	Dialect() dialect.Dialect
}

// Preparer подготавливает команды
type Preparer interface {
	Prepare(ctx context.Context, sql string, args []record.Value) (Statement, error)
}

// Connection - выделенное подключение
type Connection interface {
	Preparer

	// BeginTransaction начинает транзакцию на этом подключении
	BeginTransaction(ctx context.Context) (Transaction, error)

	// Close возвращает подключение
	Close() error
}

// Transaction - транзакция на подключении
type Transaction interface {
	Preparer

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Statement - подготовленная команда с привязанными значениями
type Statement interface {
	// ExecuteNonQuery выполняет команду и возвращает число затронутых строк
	ExecuteNonQuery(ctx context.Context) (int64, error)

	// ExecuteScalar возвращает первую колонку первой строки (NULL если строк нет)
	ExecuteScalar(ctx context.Context) (record.Value, error)

	// ExecuteReader открывает курсор. Вызывающий обязан закрыть Rows.
	ExecuteReader(ctx context.Context) (Rows, error)

	Close() error
}

// Rows - курсор результата
type Rows interface {
	// Columns возвращает имена колонок результата
	Columns() []string

	// Next переходит к следующей строке
	Next() bool

	// Values возвращает значения текущей строки в порядке Columns
	Values() ([]record.Value, error)

	// Err возвращает ошибку, прервавшую итерацию
	Err() error

	Close() error
}
