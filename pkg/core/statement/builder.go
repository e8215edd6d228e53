package statement

import (
	"fmt"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
)

// RowNumberColumn - служебная колонка нумерации строк в постраничных запросах.
// Исключается из материализованных записей.
const RowNumberColumn = "paged_row_num"

// DefaultPageSize - размер страницы если он не указан
const DefaultPageSize = 20

// Builder генерирует команды для одной таблицы
type Builder struct {
	table      string
	primaryKey string
	dialect    dialect.Dialect
}

// NewBuilder создает генератор команд для таблицы
func NewBuilder(table, primaryKey string, d dialect.Dialect) *Builder {
	return &Builder{table: table, primaryKey: primaryKey, dialect: d}
}

// Table возвращает имя таблицы
func (b *Builder) Table() string { return b.table }

// PrimaryKey возвращает имя колонки первичного ключа
func (b *Builder) PrimaryKey() string { return b.primaryKey }

// Dialect возвращает диалект
func (b *Builder) Dialect() dialect.Dialect { return b.dialect }

// BuildInsert генерирует INSERT INTO <table> (<cols>) VALUES (@0, …) в порядке полей записи
func (b *Builder) BuildInsert(rec record.Record) (Statement, error) {
	if rec.Len() == 0 {
		return Statement{}, errs.Configuration("insert into %s: record has no columns", b.table)
	}

	cols := make([]string, 0, rec.Len())
	marks := make([]string, 0, rec.Len())
	args := make([]record.Value, 0, rec.Len())
	for name, v := range rec.All() {
		marks = append(marks, placeholder(len(args)))
		cols = append(cols, name)
		args = append(args, v)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", b.table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return Statement{SQL: sql, Args: args}, nil
}

// BuildUpdate генерирует UPDATE <table> SET <col> = @i, … WHERE <pk> = @n.
// Колонка первичного ключа и NULL значения в SET не попадают.
func (b *Builder) BuildUpdate(rec record.Record, key record.Value) (Statement, error) {
	if key.IsNull() {
		return Statement{}, errs.Configuration("update of %s requires a primary key value", b.table)
	}

	sets := make([]string, 0, rec.Len())
	args := make([]record.Value, 0, rec.Len()+1)
	for name, v := range rec.All() {
		if strings.EqualFold(name, b.primaryKey) || v.IsNull() {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", name, placeholder(len(args))))
		args = append(args, v)
	}
	if len(sets) == 0 {
		return Statement{}, errs.Configuration("update of %s: no columns to set", b.table)
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", b.table, strings.Join(sets, ", "), b.primaryKey, placeholder(len(args)))
	args = append(args, key)
	return Statement{SQL: sql, Args: args}, nil
}

// BuildDelete генерирует DELETE по первичному ключу (если key не NULL) или по фрагменту WHERE.
// Без ключа и без условия удаляются все строки таблицы.
func (b *Builder) BuildDelete(where string, key record.Value, args ...record.Value) (Statement, error) {
	if !key.IsNull() {
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s = @0", b.table, b.primaryKey)
		return Statement{SQL: sql, Args: []record.Value{key}}, nil
	}
	return New(joinClauses("DELETE FROM "+b.table, prefixed(where, "WHERE")), args...)
}

// SelectSpec - параметры SELECT
type SelectSpec struct {
	Columns string // список колонок, по умолчанию "*"
	Join    string
	Where   string
	OrderBy string
	Limit   int // ограничение на первые N строк, 0 - без ограничения
	Args    []record.Value
}

// BuildSelect генерирует SELECT <cols> FROM <table> [join] [WHERE] [ORDER BY] с ограничением строк диалекта
func (b *Builder) BuildSelect(spec SelectSpec) (Statement, error) {
	sql := joinClauses(
		fmt.Sprintf("SELECT %s FROM %s", columnsOrStar(spec.Columns), b.table),
		spec.Join,
		prefixed(spec.Where, "WHERE"),
		prefixed(spec.OrderBy, "ORDER BY"),
	)
	return New(b.dialect.CapRows(sql, spec.Limit), spec.Args...)
}

// BuildSingle генерирует выборку одной строки по первичному ключу
func (b *Builder) BuildSingle(key record.Value, columns string) (Statement, error) {
	return b.BuildSelect(SelectSpec{
		Columns: columns,
		Where:   fmt.Sprintf("%s = @0", b.primaryKey),
		Limit:   1,
		Args:    []record.Value{key},
	})
}

// Aggregate - агрегатная функция
type Aggregate string

const (
	Count Aggregate = "COUNT"
	Sum   Aggregate = "SUM"
	Max   Aggregate = "MAX"
	Min   Aggregate = "MIN"
	Avg   Aggregate = "AVG"
)

// ParseAggregate распознает имя агрегатной функции без учета регистра
func ParseAggregate(name string) (Aggregate, bool) {
	switch a := Aggregate(strings.ToUpper(strings.TrimSpace(name))); a {
	case Count, Sum, Max, Min, Avg:
		return a, true
	}
	return "", false
}

// BuildAggregate генерирует SELECT FN(<column>) FROM <table> [WHERE]
func (b *Builder) BuildAggregate(fn Aggregate, column, where string, args ...record.Value) (Statement, error) {
	if _, ok := ParseAggregate(string(fn)); !ok {
		return Statement{}, errs.Configuration("unsupported aggregate %q", fn)
	}
	sql := joinClauses(
		fmt.Sprintf("SELECT %s(%s) FROM %s", fn, columnsOrStar(column), b.table),
		prefixed(where, "WHERE"),
	)
	return New(sql, args...)
}

// PageSpec - параметры постраничной выборки
type PageSpec struct {
	// SQL - явный запрос-источник. Пусто - таблица builder'а.
	SQL string
	// PrimaryKey - колонка для COUNT и сортировки по умолчанию. Пусто - первичный ключ таблицы.
	PrimaryKey string
	Columns    string
	Where      string
	OrderBy    string
	PageSize   int
	Page       int
	Args       []record.Value
}

// Paged - пара команд постраничной выборки
type Paged struct {
	Query    Statement
	Count    Statement
	Page     int
	PageSize int
}

// BuildPaged оборачивает источник в подзапрос с ROW_NUMBER() по ключу сортировки
// и оставляет строки с номерами ((Page-1)*PageSize, Page*PageSize].
// Команда подсчета - SELECT COUNT(pk) FROM <источник> с тем же условием.
func (b *Builder) BuildPaged(spec PageSpec) (Paged, error) {
	size := spec.PageSize
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 0:
		return Paged{}, errs.Configuration("page size must be positive, got %d", size)
	}
	page := spec.Page
	if page < 1 {
		page = 1
	}

	pk := spec.PrimaryKey
	if pk == "" {
		pk = b.primaryKey
	}
	orderBy := stripKeyword(spec.OrderBy, "ORDER BY")
	if orderBy == "" {
		orderBy = pk
	}
	if orderBy == "" {
		return Paged{}, errs.Configuration("paged query requires an order key or primary key")
	}

	source := b.table + " AS src"
	countSource := b.table
	if strings.TrimSpace(spec.SQL) != "" {
		source = fmt.Sprintf("(%s) AS src", strings.TrimSpace(spec.SQL))
		countSource = source
	}

	columns := strings.TrimSpace(spec.Columns)
	if columns == "" || columns == "*" {
		columns = "src.*"
	}
	where := prefixed(spec.Where, "WHERE")

	inner := joinClauses(
		fmt.Sprintf("SELECT ROW_NUMBER() OVER (ORDER BY %s) AS %s, %s FROM %s", orderBy, RowNumberColumn, columns, source),
		where,
	)
	start := (page - 1) * size
	end := page * size
	querySQL := fmt.Sprintf("SELECT * FROM (%s) AS paged WHERE %s > %d AND %s <= %d ORDER BY %s",
		inner, RowNumberColumn, start, RowNumberColumn, end, RowNumberColumn)

	query, err := New(querySQL, spec.Args...)
	if err != nil {
		return Paged{}, err
	}
	count, err := New(joinClauses(fmt.Sprintf("SELECT COUNT(%s) FROM %s", pk, countSource), where), spec.Args...)
	if err != nil {
		return Paged{}, err
	}
	return Paged{Query: query, Count: count, Page: page, PageSize: size}, nil
}

// TotalPages - число страниц: ceil(total / pageSize)
func TotalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	p := int64(pageSize)
	return (total + p - 1) / p
}

func columnsOrStar(columns string) string {
	if c := strings.TrimSpace(columns); c != "" {
		return c
	}
	return "*"
}
