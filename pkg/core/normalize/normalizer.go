// Package normalize приводит входные данные произвольного вида к record.Record,
// оставляя только колонки, существующие в схеме таблицы.
//
// Поддерживаемые входы:
//   - record.Record, *record.Record, []record.Field - порядок полей сохраняется
//   - struct и указатель на struct - порядок полей структуры, тег `db:"name"`, `db:"-"` пропускает поле
//   - map[string]any, map[string]string - ключи в лексикографическом порядке
//   - url.Values (web-форма) - ключи в лексикографическом порядке, несколько значений объединяются через ","
package normalize

import (
	"context"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"

	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/schema"
)

// SchemaSource отдает схему таблицы (обычно *schema.Cache)
type SchemaSource interface {
	Columns(ctx context.Context) ([]schema.ColumnMeta, error)
}

// Normalizer фильтрует входные записи по схеме таблицы
type Normalizer struct {
	source     SchemaSource
	primaryKey string
	coerce     bool
	converter  *schema.Converter
}

// Option настраивает Normalizer
type Option func(*Normalizer)

// WithCoercion включает приведение текстовых значений к типам колонок
func WithCoercion() Option {
	return func(n *Normalizer) { n.coerce = true }
}

// New создает нормализатор для таблицы с первичным ключом primaryKey
func New(source SchemaSource, primaryKey string, opts ...Option) *Normalizer {
	n := &Normalizer{
		source:     source,
		primaryKey: primaryKey,
		converter:  schema.NewConverter(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize конвертирует input в запись, содержащую только колонки схемы.
// Имена колонок приводятся к написанию схемы, порядок следует порядку входа.
func (n *Normalizer) Normalize(ctx context.Context, input any) (record.Record, error) {
	fields, err := Fields(input)
	if err != nil {
		return record.Record{}, err
	}

	cols, err := n.source.Columns(ctx)
	if err != nil {
		return record.Record{}, err
	}
	byName := make(map[string]schema.ColumnMeta, len(cols))
	for _, col := range cols {
		byName[strings.ToLower(col.Name)] = col
	}

	var out record.Record
	for _, f := range fields {
		col, ok := byName[strings.ToLower(f.Name)]
		if !ok {
			continue
		}
		v := f.Value
		if n.coerce {
			v = n.converter.Coerce(v, col)
		}
		out.Set(col.Name, v)
	}
	return out, nil
}

// HasPrimaryKey проверяет что нормализованный вход содержит непустой первичный ключ
func (n *Normalizer) HasPrimaryKey(ctx context.Context, input any) (bool, error) {
	_, ok, err := n.PrimaryKey(ctx, input)
	return ok, err
}

// PrimaryKey возвращает значение первичного ключа нормализованного входа.
// NULL значение ключа считается отсутствующим.
func (n *Normalizer) PrimaryKey(ctx context.Context, input any) (record.Value, bool, error) {
	rec, err := n.Normalize(ctx, input)
	if err != nil {
		return record.Null(), false, err
	}
	return KeyOf(rec, n.primaryKey)
}

// KeyOf извлекает непустое значение ключа из уже нормализованной записи
func KeyOf(rec record.Record, primaryKey string) (record.Value, bool, error) {
	v, ok := rec.Lookup(primaryKey)
	if !ok || v.IsNull() {
		return record.Null(), false, nil
	}
	return v, true, nil
}

// Fields перечисляет поля входа в его естественном порядке без фильтрации по схеме
func Fields(input any) ([]record.Field, error) {
	switch x := input.(type) {
	case nil:
		return nil, errs.Configuration("cannot normalize nil input")
	case record.Record:
		return x.Fields(), nil
	case *record.Record:
		if x == nil {
			return nil, errs.Configuration("cannot normalize nil record")
		}
		return x.Fields(), nil
	case []record.Field:
		return x, nil
	case url.Values:
		return fromValues(x), nil
	case map[string][]string:
		return fromValues(url.Values(x)), nil
	case map[string]any:
		keys := sortedKeys(x)
		out := make([]record.Field, 0, len(keys))
		for _, k := range keys {
			out = append(out, record.F(k, x[k]))
		}
		return out, nil
	case map[string]string:
		keys := sortedKeys(x)
		out := make([]record.Field, 0, len(keys))
		for _, k := range keys {
			out = append(out, record.Field{Name: k, Value: record.Text(x[k])})
		}
		return out, nil
	}

	rv := reflect.ValueOf(input)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errs.Configuration("cannot normalize nil %T", input)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errs.Configuration("unsupported input type %T", input)
	}

	tm := structMapper.TypeMap(rv.Type())
	var out []record.Field
	seen := make(map[string]struct{})
	structFields(rv, tm.Tree, &out, seen)
	return out, nil
}

func fromValues(v url.Values) []record.Field {
	keys := sortedKeys(v)
	out := make([]record.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, record.Field{Name: k, Value: record.Text(strings.Join(v[k], ","))})
	}
	return out
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// structMapper - соответствие полей структур колонкам по тегу db,
// поле без тега называется именем поля в нижнем регистре
var structMapper = reflectx.NewMapperFunc("db", strings.ToLower)

// structFields обходит дерево полей в порядке объявления, встроенные структуры разворачиваются.
// При совпадении имен остается первое поле.
func structFields(v reflect.Value, node *reflectx.FieldInfo, out *[]record.Field, seen map[string]struct{}) {
	for _, fi := range node.Children {
		if fi == nil {
			continue
		}
		fv := v.Field(fi.Index[len(fi.Index)-1])

		// встроенная структура без тега разворачивается, nil указатель пропускается
		if fi.Embedded && fi.Field.Tag.Get("db") == "" {
			for fv.Kind() == reflect.Pointer && !fv.IsNil() {
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Pointer {
				continue
			}
			if fv.Kind() == reflect.Struct {
				structFields(fv, fi, out, seen)
				continue
			}
		}
		if fi.Field.PkgPath != "" {
			continue
		}

		key := strings.ToLower(fi.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		*out = append(*out, record.Field{Name: fi.Name, Value: record.Of(fv.Interface())})
	}
}
