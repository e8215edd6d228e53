// Package base предоставляет общую реализацию driver.Driver поверх database/sql
// для адаптеров SQLite, MS SQL Server и MySQL.
//
// # Основные компоненты
//
// SQLDriver - выделяет *sql.Conn на каждое OpenConnection, переписывает
// плейсхолдеры @n в стиль драйвера и выполняет команды:
//   - Connection.Prepare / Transaction.Prepare - привязка значений
//   - Statement.ExecuteNonQuery / ExecuteScalar / ExecuteReader
//   - Rows - курсор с конвертацией значений в record.Value
//
// TypeConverter - конвертация значений:
//   - ToValue() - значение database/sql → record.Value с учетом типа колонки
//   - ToDriver() - аргумент → значение для драйвера (время в текстовом виде для SQLite/MySQL)
//   - Поддержка MS SQL-специфичных типов (UNIQUEIDENTIFIER, TIMESTAMP/ROWVERSION)
//
// # Использование
//
//	type Adapter struct {
//	    *base.SQLDriver
//	    db *sql.DB
//	}
//
//	func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
//	    db, err := sql.Open("sqlite", cfg.DSN)
//	    ...
//	    a.SQLDriver = base.NewSQLDriver(db, dialect.SQLite, base.NewTypeConverter("sqlite"))
//	}
package base
