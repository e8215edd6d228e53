// Package model - основной публичный интерфейс доступа к одной таблице.
//
// Model объединяет кэш схемы, нормализатор, построитель команд, диспетчер
// вызовов по соглашению и исполнитель. Записи не требуют заранее описанных
// типов: входом служат record.Record, map, url.Values или struct.
//
//	m, _ := model.New(model.Config{Driver: adapter, Table: "customers", PrimaryKey: "id"})
//	rec, _ := m.Insert(ctx, map[string]any{"name": "Ann"})
//	res, _ := m.Dispatch(ctx, dispatch.Call{Op: "FindByStatus", Args: []dispatch.Arg{dispatch.Named("status", "open")}})
package model

import (
	"context"
	"iter"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablekit/pkg/audit"
	"github.com/ruslano69/tablekit/pkg/core/dispatch"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/normalize"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/schema"
	"github.com/ruslano69/tablekit/pkg/core/statement"
	"github.com/ruslano69/tablekit/pkg/executor"
	"github.com/ruslano69/tablekit/pkg/security"
	"github.com/ruslano69/tablekit/pkg/validation"
)

// Model - доступ к одной таблице по соглашениям
type Model struct {
	binding TableBinding

	exec       *executor.Executor
	cache      *schema.Cache
	normalizer *normalize.Normalizer
	builder    *statement.Builder
	dispatcher *dispatch.Dispatcher
	defaults   *schema.DefaultResolver

	hooks  Hooks
	rules  *validation.RuleSet
	audit  audit.Logger
	logger zerolog.Logger

	// guard и queries заданы только в строгом режиме
	guard   *security.FragmentValidator
	queries *security.SQLValidator

	mu     sync.RWMutex
	errors validation.ErrorSet
}

// New создает модель по конфигурации
func New(cfg Config) (*Model, error) {
	if cfg.Driver == nil {
		return nil, errs.Configuration("model requires a driver")
	}
	if cfg.Table == "" {
		return nil, errs.Configuration("model requires a table name")
	}
	if cfg.PrimaryKey == "" {
		return nil, errs.Configuration("model for table %s requires a primary key column", cfg.Table)
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("table", cfg.Table).Logger()

	exec := executor.New(cfg.Driver, executor.WithLogger(logger))

	var loader schema.Loader = exec
	if cfg.Loader != nil {
		loader = cfg.Loader
	}
	cacheOpts := []schema.CacheOption{schema.WithLogger(logger)}
	if cfg.Store != nil {
		cacheOpts = append(cacheOpts, schema.WithStore(cfg.Store))
	}
	cache := schema.NewCache(cfg.Table, loader, cacheOpts...)

	var normOpts []normalize.Option
	if cfg.Coerce {
		normOpts = append(normOpts, normalize.WithCoercion())
	}

	m := &Model{
		binding: TableBinding{
			Table:      cfg.Table,
			PrimaryKey: cfg.PrimaryKey,
			Descriptor: cfg.Descriptor,
		},
		exec:       exec,
		cache:      cache,
		normalizer: normalize.New(cache, cfg.PrimaryKey, normOpts...),
		builder:    statement.NewBuilder(cfg.Table, cfg.PrimaryKey, cfg.Driver.Dialect()),
		defaults:   cfg.Defaults,
		hooks:      cfg.Hooks,
		rules:      cfg.Rules,
		audit:      cfg.Audit,
		logger:     logger,
	}
	if m.defaults == nil {
		m.defaults = schema.NewDefaultResolver()
	}
	if m.hooks == nil {
		m.hooks = NopHooks{}
	}

	var dispatchOpts []dispatch.Option
	if cfg.StrictFragments {
		m.guard = security.NewFragmentValidator()
		m.queries = security.NewSQLValidator(true)
		dispatchOpts = append(dispatchOpts, dispatch.WithGuard(m.guard))
	}
	m.dispatcher = dispatch.New(m.builder, exec, dispatchOpts...)

	return m, nil
}

// Binding возвращает привязку к таблице
func (m *Model) Binding() TableBinding {
	return m.binding
}

// Executor возвращает исполнитель команд модели
func (m *Model) Executor() *executor.Executor {
	return m.exec
}

// Schema возвращает колонки таблицы (загружаются один раз)
func (m *Model) Schema(ctx context.Context) ([]schema.ColumnMeta, error) {
	return m.cache.Columns(ctx)
}

// InvalidateSchema сбрасывает кэш схемы
func (m *Model) InvalidateSchema(ctx context.Context) error {
	return m.cache.Invalidate(ctx)
}

// DefaultValue интерпретирует DEFAULT выражение колонки
func (m *Model) DefaultValue(col schema.ColumnMeta) record.Value {
	return m.defaults.Value(col)
}

// Prototype возвращает запись со всеми колонками таблицы и их значениями по умолчанию
func (m *Model) Prototype(ctx context.Context) (record.Record, error) {
	cols, err := m.cache.Columns(ctx)
	if err != nil {
		return record.Record{}, err
	}
	var rec record.Record
	for _, col := range cols {
		rec.Set(col.Name, m.defaults.Value(col))
	}
	return rec, nil
}

// CreateFrom превращает данные web-формы в запись с колонками таблицы
func (m *Model) CreateFrom(ctx context.Context, form url.Values) (record.Record, error) {
	return m.normalizer.Normalize(ctx, form)
}

// Normalize оставляет во входе только колонки таблицы
func (m *Model) Normalize(ctx context.Context, input any) (record.Record, error) {
	return m.normalizer.Normalize(ctx, input)
}

// HasPrimaryKey проверяет что вход содержит непустой первичный ключ
func (m *Model) HasPrimaryKey(ctx context.Context, input any) (bool, error) {
	return m.normalizer.HasPrimaryKey(ctx, input)
}

// PrimaryKey возвращает значение первичного ключа входа
func (m *Model) PrimaryKey(ctx context.Context, input any) (record.Value, bool, error) {
	return m.normalizer.PrimaryKey(ctx, input)
}

// Dispatch выполняет вызов по соглашению об именах
func (m *Model) Dispatch(ctx context.Context, call dispatch.Call) (dispatch.Result, error) {
	return m.dispatcher.Dispatch(ctx, call)
}

// Plan разбирает вызов по соглашению без выполнения
func (m *Model) Plan(call dispatch.Call) (dispatch.Plan, error) {
	return m.dispatcher.Plan(call)
}

// Query выполняет произвольный SELECT.
// В строгом режиме разрешены только читающие запросы без комментариев и разделителей.
func (m *Model) Query(ctx context.Context, sql string, args ...any) iter.Seq2[record.Record, error] {
	if m.queries != nil {
		if err := m.queries.Validate(sql); err != nil {
			return failed(err)
		}
	}
	stmt, err := statement.New(sql, values(args)...)
	if err != nil {
		return failed(err)
	}
	return m.exec.Query(ctx, stmt)
}

// Scalar выполняет произвольный запрос и возвращает первую колонку первой строки
func (m *Model) Scalar(ctx context.Context, sql string, args ...any) (record.Value, error) {
	if m.queries != nil {
		if err := m.queries.Validate(sql); err != nil {
			return record.Null(), err
		}
	}
	stmt, err := statement.New(sql, values(args)...)
	if err != nil {
		return record.Null(), err
	}
	return m.exec.Scalar(ctx, stmt)
}

// Exec выполняет произвольную команду в транзакции и возвращает число затронутых строк.
// Текст команды считается доверенным и в строгом режиме не проверяется.
func (m *Model) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	stmt, err := statement.New(sql, values(args)...)
	if err != nil {
		return 0, err
	}
	return m.exec.Execute(ctx, stmt)
}

// Errors возвращает сообщения последней проверки
func (m *Model) Errors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors.Messages()
}

// checkFragments проверяет фрагменты в строгом режиме
func (m *Model) checkFragments(fragments ...string) error {
	if m.guard == nil {
		return nil
	}
	for _, f := range fragments {
		if err := m.guard.Fragment(f); err != nil {
			return err
		}
	}
	return nil
}

// values конвертирует аргументы вызывающего кода
func values(args []any) []record.Value {
	if len(args) == 0 {
		return nil
	}
	out := make([]record.Value, len(args))
	for i, a := range args {
		out[i] = record.Of(a)
	}
	return out
}

// failed - последовательность из одной ошибки
func failed(err error) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		yield(record.Record{}, err)
	}
}
