package schema

import (
	"strings"
)

// DataType представляет нормализованный тип данных колонки
type DataType string

// Поддерживаемые типы данных
const (
	TypeInteger   DataType = "INTEGER"
	TypeReal      DataType = "REAL"
	TypeDecimal   DataType = "DECIMAL"
	TypeText      DataType = "TEXT"
	TypeBoolean   DataType = "BOOLEAN"
	TypeDate      DataType = "DATE"
	TypeDatetime  DataType = "DATETIME"
	TypeTimestamp DataType = "TIMESTAMP"
	TypeBlob      DataType = "BLOB"
	TypeUUID      DataType = "UUID"
)

// ColumnMeta - описание одной колонки таблицы
type ColumnMeta struct {
	// Name - имя колонки в написании БД
	Name string `json:"name"`

	// Default - выражение DEFAULT как его вернула БД, например "(getdate())"
	Default string `json:"default,omitempty"`

	// HasDefault - у колонки есть выражение DEFAULT (пустое Default не всегда означает его отсутствие)
	HasDefault bool `json:"has_default"`

	// Nullable - колонка допускает NULL
	Nullable bool `json:"nullable"`

	// SQLType - тип колонки как его вернула БД
	SQLType string `json:"sql_type"`

	// Type - нормализованный тип
	Type DataType `json:"type"`

	// Ordinal - позиция колонки (с 1)
	Ordinal int `json:"ordinal"`
}

// IsNumericType проверяет является ли тип числовым
func IsNumericType(t DataType) bool {
	switch t {
	case TypeInteger, TypeReal, TypeDecimal:
		return true
	default:
		return false
	}
}

// IsDateTimeType проверяет является ли тип временным
func IsDateTimeType(t DataType) bool {
	switch t {
	case TypeDate, TypeDatetime, TypeTimestamp:
		return true
	default:
		return false
	}
}

// FromSQLType приводит тип колонки конкретной СУБД к DataType.
// Правила покрывают SQLite (аффинити по подстроке), PostgreSQL, MS SQL и MySQL.
func FromSQLType(sqlType string) DataType {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.Index(t, "("); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch t {
	case "BIT", "BOOL", "BOOLEAN":
		return TypeBoolean
	case "UNIQUEIDENTIFIER", "UUID":
		return TypeUUID
	case "DATE":
		return TypeDate
	case "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET":
		return TypeDatetime
	case "ROWVERSION":
		return TypeBlob
	}

	switch {
	case strings.HasPrefix(t, "TIMESTAMP"):
		return TypeTimestamp
	case strings.Contains(t, "INT"), t == "SERIAL", t == "BIGSERIAL", t == "SMALLSERIAL":
		return TypeInteger
	case strings.Contains(t, "DEC"), strings.Contains(t, "NUMERIC"), strings.Contains(t, "MONEY"):
		return TypeDecimal
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return TypeReal
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"), t == "BYTEA", t == "IMAGE":
		return TypeBlob
	default:
		return TypeText
	}
}
