package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/ruslano69/tablekit/pkg/core/dispatch"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/model"
	"github.com/ruslano69/tablekit/pkg/xlsx"
)

// execute выполняет команду, выбранную флагами, и возвращает результат для вывода
func execute(ctx context.Context, a *app, flags *Flags) (any, error) {
	if flags.List {
		tables, err := a.adapter.GetTableNames(ctx)
		if err != nil {
			return nil, err
		}
		if tables == nil {
			tables = []string{}
		}
		return tables, nil
	}
	if flags.PurgeAudit > 0 {
		return purgeAudit(ctx, a, flags.PurgeAudit)
	}

	m, err := a.model(flags)
	if err != nil {
		return nil, err
	}

	switch {
	case flags.Schema:
		return m.Schema(ctx)

	case flags.Prototype:
		return m.Prototype(ctx)

	case flags.All:
		return listRecords(ctx, m, flags)

	case flags.Paged:
		return m.Paged(ctx, model.PageRequest{
			Where:    flags.Where,
			OrderBy:  flags.OrderBy,
			Columns:  flags.Columns,
			PageSize: flags.PageSize,
			Page:     flags.Page,
		})

	case flags.Call != "":
		return callTable(ctx, m, flags)

	case flags.Count:
		n, err := m.Count(ctx, flags.Where)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"count": n}, nil

	case flags.KeyValues:
		pairs, err := m.KeyValues(ctx, flags.OrderBy)
		if err != nil {
			return nil, err
		}
		if pairs == nil {
			pairs = []model.KeyValue{}
		}
		return pairs, nil

	case flags.Insert != "":
		form, err := parseAssignments(flags.Insert)
		if err != nil {
			return nil, err
		}
		return m.Insert(ctx, form)

	case flags.Delete != "":
		n, err := m.Delete(ctx, map[string]any{m.Binding().PrimaryKey: flags.Delete})
		if err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": n}, nil

	case flags.FromXLSX != "":
		return importXLSX(ctx, m, flags)
	}

	return nil, errNoCommand
}

// listRecords выбирает записи и выводит их в JSON или в XLSX файл
func listRecords(ctx context.Context, m *model.Model, flags *Flags) (any, error) {
	records := []record.Record{}
	for rec, err := range m.All(ctx, model.Filter{
		Where:   flags.Where,
		Join:    flags.Join,
		OrderBy: flags.OrderBy,
		Limit:   flags.Limit,
		Columns: flags.Columns,
	}) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if flags.XLSX == "" {
		return records, nil
	}

	binding := m.Binding()
	opts := []xlsx.Option{xlsx.WithPrimaryKey(binding.PrimaryKey)}
	if flags.Columns == "" && flags.Join == "" {
		cols, err := m.Schema(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xlsx.WithColumns(cols))
	}
	if err := xlsx.WriteRecords(flags.XLSX, sheetName(flags, binding.Table), records, opts...); err != nil {
		return nil, err
	}
	return map[string]any{"file": flags.XLSX, "records": len(records)}, nil
}

// importXLSX сохраняет строки листа: строки с ключом обновляются, без ключа - добавляются
func importXLSX(ctx context.Context, m *model.Model, flags *Flags) (any, error) {
	sheet, err := xlsx.ReadRecords(flags.FromXLSX, flags.Sheet)
	if err != nil {
		return nil, err
	}
	if len(sheet.Records) == 0 {
		return map[string]int64{"saved": 0}, nil
	}

	items := make([]any, len(sheet.Records))
	for i, rec := range sheet.Records {
		items[i] = rec
	}
	n, err := m.Save(ctx, items...)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"saved": n}, nil
}

// callTable выполняет вызов по соглашению об именах
func callTable(ctx context.Context, m *model.Model, flags *Flags) (any, error) {
	call := dispatch.Call{Op: flags.Call}
	for _, a := range flags.Args {
		name, value, _ := strings.Cut(a, "=")
		call.Args = append(call.Args, dispatch.Named(strings.TrimSpace(name), value))
	}

	res, err := m.Dispatch(ctx, call)
	if err != nil {
		return nil, err
	}
	switch res.Kind {
	case dispatch.KindScalar:
		return res.Scalar, nil
	case dispatch.KindRecord:
		if !res.Found {
			return nil, nil
		}
		return res.Record, nil
	default:
		if res.Records == nil {
			return []record.Record{}, nil
		}
		return res.Records, nil
	}
}

// parseAssignments разбирает "name=value,name=value" как данные web-формы
func parseAssignments(s string) (url.Values, error) {
	form := url.Values{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", part)
		}
		form.Add(strings.TrimSpace(name), value)
	}
	if len(form) == 0 {
		return nil, fmt.Errorf("no values to insert")
	}
	return form, nil
}

func sheetName(flags *Flags, table string) string {
	if flags.Sheet != "" {
		return flags.Sheet
	}
	return table
}

// writeJSON выводит результат с отступами
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// purgeAudit удаляет из таблицы аудита записи старше maxAge
func purgeAudit(ctx context.Context, a *app, maxAge time.Duration) (any, error) {
	if a.auditTable == nil {
		return nil, fmt.Errorf("--purge-audit requires audit.enabled and audit.table in config")
	}
	n, err := a.auditTable.DeleteOlderThan(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return nil, err
	}
	a.logger.Info().Int64("purged", n).Dur("older_than", maxAge).Msg("audit entries purged")
	return map[string]int64{"purged": n}, nil
}
