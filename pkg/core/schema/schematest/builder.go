// Package schematest собирает схемы таблиц вручную для тестов
// пакетов, которые работают через schema.Loader.
package schematest

import (
	"context"

	"github.com/ruslano69/tablekit/pkg/core/schema"
)

// Builder помогает собрать схему вручную
type Builder struct {
	columns []schema.ColumnMeta
}

// NewBuilder создает новый builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Column добавляет колонку с типом БД
func (b *Builder) Column(name, sqlType string, nullable bool) *Builder {
	b.columns = append(b.columns, schema.ColumnMeta{
		Name:     name,
		SQLType:  sqlType,
		Type:     schema.FromSQLType(sqlType),
		Nullable: nullable,
		Ordinal:  len(b.columns) + 1,
	})
	return b
}

// WithDefault задает выражение DEFAULT для последней добавленной колонки
func (b *Builder) WithDefault(expr string) *Builder {
	if n := len(b.columns); n > 0 {
		b.columns[n-1].Default = expr
		b.columns[n-1].HasDefault = expr != ""
	}
	return b
}

// Build возвращает собранную схему
func (b *Builder) Build() []schema.ColumnMeta {
	out := make([]schema.ColumnMeta, len(b.columns))
	copy(out, b.columns)
	return out
}

// Loader возвращает загрузчик, отдающий собранную схему для любой таблицы
func (b *Builder) Loader() schema.Loader {
	cols := b.Build()
	return schema.LoaderFunc(func(_ context.Context, _ string) ([]schema.ColumnMeta, error) {
		return cols, nil
	})
}
