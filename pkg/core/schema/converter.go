package schema

import (
	"strconv"
	"strings"
	"time"

	"github.com/ruslano69/tablekit/pkg/core/record"
)

// Converter приводит текстовые значения (например, из web-формы) к типу колонки
type Converter struct{}

// NewConverter создает новый конвертер
func NewConverter() *Converter {
	return &Converter{}
}

// Coerce конвертирует текстовое значение согласно типу колонки.
// Нетекстовые значения возвращаются без изменений. Если текст не удается
// разобрать, он также возвращается как есть: решение о корректности
// принимает валидация, а не нормализация.
func (c *Converter) Coerce(v record.Value, col ColumnMeta) record.Value {
	if v.Kind() != record.KindText {
		return v
	}
	raw := v.String()

	// Пустая строка для нетекстовых nullable колонок означает NULL
	if raw == "" {
		if col.Type != TypeText && col.Type != TypeUUID && col.Nullable {
			return record.Null()
		}
		return v
	}

	switch col.Type {
	case TypeInteger:
		if i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			return record.Int(i)
		}
	case TypeReal, TypeDecimal:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return record.Float(f)
		}
	case TypeBoolean:
		return c.parseBoolean(v, raw)
	case TypeDate:
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return record.Date(t)
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return record.Date(t)
		}
	case TypeDatetime, TypeTimestamp:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return record.Time(t)
			}
		}
	}
	return v
}

// parseBoolean понимает 0/1, true/false и значение чекбокса "on"
func (c *Converter) parseBoolean(v record.Value, raw string) record.Value {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return record.Bool(true)
	case "0", "false", "off", "no":
		return record.Bool(false)
	}
	return v
}
