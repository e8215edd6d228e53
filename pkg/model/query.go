package model

import (
	"context"
	"iter"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/statement"
)

// Filter - параметры выборки All. Все поля необязательны.
type Filter struct {
	Where   string
	Join    string
	OrderBy string
	// Limit - ограничение на первые N строк, 0 - без ограничения
	Limit   int
	Columns string
	Args    []any
}

// PageRequest - параметры постраничной выборки.
// SQL задает явный запрос-источник вместо таблицы, PrimaryKey - его ключ.
type PageRequest struct {
	SQL        string
	PrimaryKey string
	Where      string
	OrderBy    string
	Columns    string
	PageSize   int
	Page       int
	Args       []any
}

// PagedResult - страница записей
type PagedResult struct {
	TotalRecords int64           `json:"total_records"`
	TotalPages   int64           `json:"total_pages"`
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	Items        []record.Record `json:"items"`
}

// KeyValue - пара ключ/описание строки
type KeyValue struct {
	Key   string       `json:"key"`
	Value record.Value `json:"value"`
}

// All возвращает ленивую последовательность записей.
// Подключение освобождается по завершении или прерывании перебора.
func (m *Model) All(ctx context.Context, f Filter) iter.Seq2[record.Record, error] {
	if err := m.checkFragments(f.Where, f.Join, f.OrderBy, f.Columns); err != nil {
		return failed(err)
	}
	stmt, err := m.builder.BuildSelect(statement.SelectSpec{
		Columns: f.Columns,
		Join:    f.Join,
		Where:   f.Where,
		OrderBy: f.OrderBy,
		Limit:   f.Limit,
		Args:    values(f.Args),
	})
	if err != nil {
		return failed(err)
	}
	return m.exec.Query(ctx, stmt)
}

// Single возвращает запись по первичному ключу. found=false если записи нет.
func (m *Model) Single(ctx context.Context, key any, columns string) (rec record.Record, found bool, err error) {
	if err := m.checkFragments(columns); err != nil {
		return record.Record{}, false, err
	}
	k := record.Of(key)
	if k.IsNull() {
		return record.Record{}, false, errs.Configuration("single row of %s requires a primary key value", m.binding.Table)
	}
	stmt, err := m.builder.BuildSingle(k, columns)
	if err != nil {
		return record.Record{}, false, err
	}
	return m.first(ctx, stmt)
}

// SingleWhere возвращает первую запись, удовлетворяющую условию
func (m *Model) SingleWhere(ctx context.Context, where, columns string, args ...any) (record.Record, bool, error) {
	if err := m.checkFragments(where, columns); err != nil {
		return record.Record{}, false, err
	}
	stmt, err := m.builder.BuildSelect(statement.SelectSpec{
		Columns: columns,
		Where:   where,
		Limit:   1,
		Args:    values(args),
	})
	if err != nil {
		return record.Record{}, false, err
	}
	return m.first(ctx, stmt)
}

func (m *Model) first(ctx context.Context, stmt statement.Statement) (record.Record, bool, error) {
	for rec, err := range m.exec.Query(ctx, stmt) {
		if err != nil {
			return record.Record{}, false, err
		}
		return rec, true, nil
	}
	return record.Record{}, false, nil
}

// Paged возвращает страницу записей и общее число записей и страниц
func (m *Model) Paged(ctx context.Context, req PageRequest) (PagedResult, error) {
	if err := m.checkFragments(req.Where, req.OrderBy, req.Columns); err != nil {
		return PagedResult{}, err
	}
	if m.guard != nil && req.PrimaryKey != "" {
		if err := m.guard.Identifier(req.PrimaryKey); err != nil {
			return PagedResult{}, err
		}
	}
	if m.queries != nil && strings.TrimSpace(req.SQL) != "" {
		if err := m.queries.Validate(req.SQL); err != nil {
			return PagedResult{}, err
		}
	}

	paged, err := m.builder.BuildPaged(statement.PageSpec{
		SQL:        req.SQL,
		PrimaryKey: req.PrimaryKey,
		Columns:    req.Columns,
		Where:      req.Where,
		OrderBy:    req.OrderBy,
		PageSize:   req.PageSize,
		Page:       req.Page,
		Args:       values(req.Args),
	})
	if err != nil {
		return PagedResult{}, err
	}

	total, err := m.exec.Scalar(ctx, paged.Count)
	if err != nil {
		return PagedResult{}, err
	}
	totalRecords, _ := total.AsInt()

	result := PagedResult{
		TotalRecords: totalRecords,
		TotalPages:   statement.TotalPages(totalRecords, paged.PageSize),
		Page:         paged.Page,
		PageSize:     paged.PageSize,
		Items:        make([]record.Record, 0, paged.PageSize),
	}
	for rec, err := range m.exec.Query(ctx, paged.Query) {
		if err != nil {
			return PagedResult{}, err
		}
		rec.Delete(statement.RowNumberColumn)
		result.Items = append(result.Items, rec)
	}
	return result, nil
}

// KeyValues возвращает пары первичный ключ → описание в порядке orderBy
// (по умолчанию по первичному ключу). Требует настроенной колонки описания.
func (m *Model) KeyValues(ctx context.Context, orderBy string) ([]KeyValue, error) {
	if m.binding.Descriptor == "" {
		return nil, errs.Configuration("key values of %s require a descriptor column", m.binding.Table)
	}
	if err := m.checkFragments(orderBy); err != nil {
		return nil, err
	}
	if orderBy == "" {
		orderBy = m.binding.PrimaryKey
	}

	stmt, err := m.builder.BuildSelect(statement.SelectSpec{
		Columns: m.binding.PrimaryKey + ", " + m.binding.Descriptor,
		OrderBy: orderBy,
	})
	if err != nil {
		return nil, err
	}

	var out []KeyValue
	for rec, err := range m.exec.Query(ctx, stmt) {
		if err != nil {
			return nil, err
		}
		out = append(out, KeyValue{
			Key:   rec.Get(m.binding.PrimaryKey).String(),
			Value: rec.Get(m.binding.Descriptor),
		})
	}
	return out, nil
}

// Count возвращает число строк, удовлетворяющих условию (пусто - все строки)
func (m *Model) Count(ctx context.Context, where string, args ...any) (int64, error) {
	if err := m.checkFragments(where); err != nil {
		return 0, err
	}
	stmt, err := m.builder.BuildAggregate(statement.Count, "*", where, values(args)...)
	if err != nil {
		return 0, err
	}
	v, err := m.exec.Scalar(ctx, stmt)
	if err != nil {
		return 0, err
	}
	n, _ := v.AsInt()
	return n, nil
}
