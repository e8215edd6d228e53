package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/schema"
	"github.com/ruslano69/tablekit/pkg/core/statement"
)

// Compile-time check
var _ schema.Loader = (*Executor)(nil)

// LoadColumns читает метаданные колонок таблицы запросом диалекта.
// Реализует schema.Loader.
func (e *Executor) LoadColumns(ctx context.Context, table string) ([]schema.ColumnMeta, error) {
	sql, args := e.Dialect().ColumnsQuery(table)
	stmt, err := statement.New(sql, args...)
	if err != nil {
		return nil, err
	}

	var cols []schema.ColumnMeta
	var scanErr error
	err = e.Rows(ctx, stmt, func(_ []string, values []record.Value) bool {
		if len(values) < 4 {
			scanErr = fmt.Errorf("columns query for %s returned %d fields, want 4", table, len(values))
			return false
		}
		col := schema.ColumnMeta{
			Name:       values[0].String(),
			HasDefault: !values[1].IsNull(),
			Nullable:   strings.EqualFold(strings.TrimSpace(values[2].String()), "YES"),
			SQLType:    values[3].String(),
			Ordinal:    len(cols) + 1,
		}
		if col.HasDefault {
			col.Default = values[1].String()
		}
		col.Type = schema.FromSQLType(col.SQLType)
		cols = append(cols, col)
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	if len(cols) == 0 {
		return nil, errs.Configuration("table %s not found or has no columns", table)
	}
	return cols, nil
}
