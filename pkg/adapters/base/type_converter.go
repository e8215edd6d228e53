package base

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/schema"
)

// TypeConverter - конвертер значений между database/sql и record.Value
// Учитывает специфику СУБД (dbType: "sqlite", "mssql", "mysql")
type TypeConverter struct {
	dbType string
}

// NewTypeConverter создает конвертер для типа СУБД
func NewTypeConverter(dbType string) *TypeConverter {
	return &TypeConverter{dbType: dbType}
}

// ToValue конвертирует значение, прочитанное из БД, в record.Value.
// typeName - DatabaseTypeName колонки (может быть пустым).
func (c *TypeConverter) ToValue(val any, typeName string) record.Value {
	if val == nil {
		return record.Null()
	}

	upper := strings.ToUpper(typeName)

	switch v := val.(type) {
	case []byte:
		return c.bytesToValue(v, upper)

	case string:
		return c.textToValue(v, upper)

	case time.Time:
		if upper == "DATE" {
			return record.Date(v)
		}
		return record.Time(v)

	case int64:
		// SQLite хранит BOOLEAN как 0/1
		if upper == "BOOLEAN" || upper == "BOOL" {
			return record.Bool(v != 0)
		}
		return record.Int(v)

	case map[string]any, []any:
		// JSON
		data, err := json.Marshal(v)
		if err != nil {
			return record.Text(fmt.Sprint(v))
		}
		return record.Text(string(data))

	default:
		return record.Of(val)
	}
}

// bytesToValue - драйверы MySQL и MS SQL отдают многие типы как []byte
func (c *TypeConverter) bytesToValue(v []byte, upper string) record.Value {
	switch {
	case upper == "UNIQUEIDENTIFIER" && len(v) == 16:
		return record.Text(mssqlGUID(v))
	case upper == "TIMESTAMP" && c.dbType == "mssql", upper == "ROWVERSION":
		// В MS SQL TIMESTAMP - синоним ROWVERSION
		return record.Text(rowversionHex(v))
	}

	switch schema.FromSQLType(upper) {
	case schema.TypeBlob:
		out := make([]byte, len(v))
		copy(out, v)
		return record.Bytes(out)
	case schema.TypeInteger:
		if i, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return record.Int(i)
		}
	case schema.TypeReal, schema.TypeDecimal:
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			return record.Float(f)
		}
	}
	return record.Text(string(v))
}

// textToValue - SQLite отдает DATE/DATETIME как текст, если не смог разобрать
func (c *TypeConverter) textToValue(v string, upper string) record.Value {
	if upper == "DATE" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return record.Date(t)
		}
	}
	return record.Text(v)
}

// ToDriver готовит аргумент для передачи драйверу
func (c *TypeConverter) ToDriver(val any) any {
	switch v := val.(type) {
	case time.Time:
		// Для SQLite и MySQL используем строковый формат
		if c.dbType == "sqlite" || c.dbType == "mysql" {
			if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
				return v.Format("2006-01-02")
			}
			return v.Format("2006-01-02 15:04:05")
		}
		return v
	case bool:
		// SQLite использует 1/0 для boolean
		if c.dbType == "sqlite" {
			if v {
				return int64(1)
			}
			return int64(0)
		}
		return v
	default:
		return val
	}
}

// mssqlGUID форматирует UNIQUEIDENTIFIER: первые три группы хранятся в little-endian
func mssqlGUID(b []byte) string {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(b[6:8]))
	copy(u[8:], b[8:])
	return strings.ToUpper(u.String())
}
