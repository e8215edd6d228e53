// Package record содержит каноническое представление строки таблицы:
// упорядоченный набор пар "колонка - значение" поверх типа-суммы Value.
//
// Порядок вставки сохраняется и определяет нумерацию параметров в
// генерируемом SQL, поэтому он должен быть стабильным.
package record

import (
	"bytes"
	"encoding/json"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Field - пара "имя колонки - значение"
type Field struct {
	Name  string
	Value Value
}

// F - короткий конструктор Field из произвольного Go значения
func F(name string, v any) Field {
	return Field{Name: name, Value: Of(v)}
}

// Record - упорядоченная запись с уникальными (без учета регистра) ключами.
// Нулевое значение готово к использованию.
//
// Копии записи (присваивание, передача по значению) разделяют fields и index,
// поэтому Set и Delete их не изменяют, а заменяют новыми.
type Record struct {
	fields []Field
	index  map[string]int
}

// New создает запись из полей в заданном порядке.
// Повторяющееся имя заменяет значение, сохраняя первую позицию.
func New(fields ...Field) Record {
	r := Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		key := foldKey(f.Name)
		if i, ok := r.index[key]; ok {
			r.fields[i].Value = f.Value
			continue
		}
		r.index[key] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r
}

func foldKey(name string) string {
	return strings.ToLower(name)
}

// Set устанавливает значение колонки. Новая колонка добавляется в конец,
// существующая (без учета регистра) сохраняет позицию и исходное имя.
func (r *Record) Set(name string, v Value) {
	key := foldKey(name)
	if i, ok := r.index[key]; ok {
		fields := slices.Clone(r.fields)
		fields[i].Value = v
		r.fields = fields
		return
	}
	fields := make([]Field, len(r.fields), len(r.fields)+1)
	copy(fields, r.fields)
	index := maps.Clone(r.index)
	if index == nil {
		index = make(map[string]int, 1)
	}
	index[key] = len(fields)
	r.fields = append(fields, Field{Name: name, Value: v})
	r.index = index
}

// SetAny - Set с конвертацией через Of
func (r *Record) SetAny(name string, v any) {
	r.Set(name, Of(v))
}

// Lookup возвращает значение и признак наличия колонки
func (r Record) Lookup(name string) (Value, bool) {
	if r.index == nil {
		return Null(), false
	}
	i, ok := r.index[foldKey(name)]
	if !ok {
		return Null(), false
	}
	return r.fields[i].Value, true
}

// Get возвращает значение колонки или NULL если колонки нет
func (r Record) Get(name string) Value {
	v, _ := r.Lookup(name)
	return v
}

// Has проверяет наличие колонки (без учета регистра)
func (r Record) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Name возвращает имя колонки в написании записи
func (r Record) Name(name string) (string, bool) {
	if r.index == nil {
		return "", false
	}
	i, ok := r.index[foldKey(name)]
	if !ok {
		return "", false
	}
	return r.fields[i].Name, true
}

// Delete удаляет колонку. Возвращает false если колонки не было.
func (r *Record) Delete(name string) bool {
	i, ok := r.index[foldKey(name)]
	if !ok {
		return false
	}
	fields := make([]Field, 0, len(r.fields)-1)
	fields = append(fields, r.fields[:i]...)
	fields = append(fields, r.fields[i+1:]...)
	index := make(map[string]int, len(fields))
	for j, f := range fields {
		index[foldKey(f.Name)] = j
	}
	r.fields = fields
	r.index = index
	return true
}

// Len возвращает количество колонок
func (r Record) Len() int { return len(r.fields) }

// Keys возвращает имена колонок в порядке вставки
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields возвращает копию полей в порядке вставки
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// All итерирует поля в порядке вставки
func (r Record) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, f := range r.fields {
			if !yield(f.Name, f.Value) {
				return
			}
		}
	}
}

// Clone возвращает независимую копию записи
func (r Record) Clone() Record {
	return New(r.fields...)
}

// Map возвращает значения в виде map (порядок теряется)
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value.Any()
	}
	return m
}

// MarshalJSON сериализует запись в JSON объект с сохранением порядка колонок
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String возвращает JSON представление записи
func (r Record) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}
