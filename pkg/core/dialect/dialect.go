// Package dialect описывает различия SQL диалектов, которые влияют на
// генерацию команд: стиль плейсхолдеров драйвера, ограничение числа строк,
// получение сгенерированного ключа и запрос метаданных колонок.
package dialect

import (
	"fmt"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/record"
)

// Placeholder - стиль позиционных параметров, который понимает драйвер
//
//   - PlaceholderQuestion → "?"           (SQLite, MySQL)
//   - PlaceholderDollar   → "$1, $2, …"  (PostgreSQL)
//   - PlaceholderAtP      → "@p1, @p2…"  (SQL Server)
type Placeholder int

const (
	PlaceholderQuestion Placeholder = iota
	PlaceholderDollar
	PlaceholderAtP
)

// LimitStyle - синтаксис ограничения количества строк
type LimitStyle int

const (
	// LimitTop - SELECT TOP n ... (SQL Server)
	LimitTop LimitStyle = iota
	// LimitTrailing - SELECT ... LIMIT n (SQLite, PostgreSQL, MySQL)
	LimitTrailing
)

// Dialect - описание диалекта СУБД
type Dialect struct {
	// Name - тип СУБД: "mssql", "postgres", "sqlite", "mysql"
	Name string

	// Placeholder - стиль параметров драйвера
	Placeholder Placeholder

	// Limit - синтаксис ограничения строк
	Limit LimitStyle

	// IdentityQuery - запрос сгенерированного ключа после INSERT на том же подключении.
	// Пусто если используется RETURNING.
	IdentityQuery string

	// Returning - поддерживается INSERT ... RETURNING <pk>
	Returning bool

	// DefaultSchema - схема по умолчанию для запроса метаданных
	DefaultSchema string
}

var (
	SQLServer = Dialect{
		Name:          "mssql",
		Placeholder:   PlaceholderAtP,
		Limit:         LimitTop,
		IdentityQuery: "SELECT @@IDENTITY",
		DefaultSchema: "dbo",
	}

	Postgres = Dialect{
		Name:          "postgres",
		Placeholder:   PlaceholderDollar,
		Limit:         LimitTrailing,
		Returning:     true,
		DefaultSchema: "public",
	}

	SQLite = Dialect{
		Name:          "sqlite",
		Placeholder:   PlaceholderQuestion,
		Limit:         LimitTrailing,
		IdentityQuery: "SELECT last_insert_rowid()",
	}

	MySQL = Dialect{
		Name:          "mysql",
		Placeholder:   PlaceholderQuestion,
		Limit:         LimitTrailing,
		IdentityQuery: "SELECT LAST_INSERT_ID()",
	}
)

// For возвращает диалект по типу СУБД (включая синонимы драйверов)
func For(dbType string) (Dialect, error) {
	switch strings.ToLower(dbType) {
	case "mssql", "sqlserver":
		return SQLServer, nil
	case "postgres", "postgresql", "pgx", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unknown dialect: %s", dbType)
	}
}

// CapRows добавляет ограничение на первые n строк к готовому SELECT.
// Для TOP вставляет "TOP n" сразу после SELECT, иначе дописывает LIMIT n.
func (d Dialect) CapRows(selectSQL string, n int) string {
	if n <= 0 {
		return selectSQL
	}
	if d.Limit == LimitTop {
		trimmed := strings.TrimLeft(selectSQL, " ")
		if len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "SELECT") {
			return fmt.Sprintf("SELECT TOP %d%s", n, trimmed[6:])
		}
		return selectSQL
	}
	return fmt.Sprintf("%s LIMIT %d", strings.TrimRight(selectSQL, " "), n)
}

// ColumnsQuery возвращает запрос метаданных колонок таблицы.
// Результат всегда содержит 4 колонки в порядке:
// имя, выражение DEFAULT, признак nullable ('YES'/'NO'), тип данных.
// Таблица может быть квалифицирована схемой: "dbo.users".
func (d Dialect) ColumnsQuery(table string) (string, []record.Value) {
	schemaName, tableName := SplitTable(table)

	switch d.Name {
	case "sqlite":
		return `SELECT name, dflt_value, CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END, type
FROM pragma_table_info(@0)
ORDER BY cid`, []record.Value{record.Text(tableName)}

	case "mysql":
		if schemaName != "" {
			return `SELECT column_name, column_default, is_nullable, data_type
FROM information_schema.columns
WHERE table_schema = @1 AND table_name = @0
ORDER BY ordinal_position`, []record.Value{record.Text(tableName), record.Text(schemaName)}
		}
		return `SELECT column_name, column_default, is_nullable, data_type
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = @0
ORDER BY ordinal_position`, []record.Value{record.Text(tableName)}

	default:
		if schemaName == "" {
			schemaName = d.DefaultSchema
		}
		return `SELECT COLUMN_NAME, COLUMN_DEFAULT, IS_NULLABLE, DATA_TYPE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_NAME = @0 AND TABLE_SCHEMA = @1
ORDER BY ORDINAL_POSITION`, []record.Value{record.Text(tableName), record.Text(schemaName)}
	}
}

// SplitTable разделяет "schema.table" на части.
// Квадратные скобки и кавычки вокруг частей удаляются.
func SplitTable(table string) (schemaName, tableName string) {
	unquote := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		return strings.Trim(s, "\"`")
	}
	if i := strings.LastIndex(table, "."); i >= 0 {
		return unquote(table[:i]), unquote(table[i+1:])
	}
	return "", unquote(table)
}
