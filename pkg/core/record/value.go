package record

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Kind - тип значения в Record
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
	KindBytes
)

// String - строковое представление типа
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Value - типизированное значение поля записи.
// Нулевое значение Value{} соответствует NULL.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
	raw  []byte
}

// Null возвращает NULL значение
func Null() Value { return Value{} }

// Text создает текстовое значение
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Int создает целочисленное значение
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float создает значение с плавающей точкой
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool создает логическое значение
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time создает значение даты/времени
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Date создает значение даты (время обнуляется в часовом поясе t)
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindTime, t: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// Bytes создает бинарное значение
func Bytes(b []byte) Value {
	if b == nil {
		return Null()
	}
	return Value{kind: KindBytes, raw: b}
}

// Of конвертирует произвольное Go значение в Value.
// Поддерживаются примитивы, time.Time, []byte, указатели, driver.Valuer и fmt.Stringer.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case *Value:
		if x == nil {
			return Null()
		}
		return *x
	case string:
		return Text(x)
	case []byte:
		return Bytes(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return ofUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return ofUint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case time.Time:
		return Time(x)
	case driver.Valuer:
		// sql.NullString, sql.NullInt64 и т.д.
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Null()
		}
		dv, err := x.Value()
		if err != nil {
			return Text(fmt.Sprint(v))
		}
		return Of(dv)
	case fmt.Stringer:
		return Text(x.String())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null()
		}
		return Of(rv.Elem().Interface())
	}
	return Text(fmt.Sprint(v))
}

func ofUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Text(strconv.FormatUint(u, 10))
	}
	return Int(int64(u))
}

// Kind возвращает тип значения
func (v Value) Kind() Kind { return v.kind }

// IsNull проверяет является ли значение NULL
func (v Value) IsNull() bool { return v.kind == KindNull }

// Any возвращает значение в виде, пригодном для передачи драйверу БД
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindBytes:
		return v.raw
	default:
		return nil
	}
}

// String возвращает текстовое представление значения.
// NULL представляется пустой строкой.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format(time.RFC3339)
	case KindBytes:
		return string(v.raw)
	default:
		return ""
	}
}

// AsInt пытается получить целое число (текст парсится)
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) {
			return int64(v.f), true
		}
	case KindText:
		if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return i, true
		}
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsFloat пытается получить число с плавающей точкой (текст парсится)
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindText:
		if f, err := strconv.ParseFloat(v.s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// AsTime возвращает время, если значение имеет тип KindTime
func (v Value) AsTime() (time.Time, bool) {
	if v.kind == KindTime {
		return v.t, true
	}
	return time.Time{}, false
}

// AsBool возвращает логическое значение, если значение имеет тип KindBool
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// Equal сравнивает значения по типу и содержимому
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindTime:
		return v.t.Equal(o.t)
	case KindBytes:
		return string(v.raw) == string(o.raw)
	default:
		return v.Any() == o.Any()
	}
}

// MarshalJSON сериализует значение в JSON
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindTime {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Any())
}
