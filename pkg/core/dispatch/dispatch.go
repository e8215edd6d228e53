// Package dispatch разбирает вызовы по соглашению об именах:
// имя операции плюс именованные аргументы превращаются в SQL команду.
//
//	Dispatch(ctx, Call{Op: "FindByStatus", Args: []Arg{Named("status", "open"), Named("orderby", "created")}})
//	→ SELECT * FROM t WHERE status = @0 ORDER BY created
//
// Зарезервированные аргументы: orderby (заменяет ORDER BY <pk>) и columns (заменяет *).
// Остальные аргументы становятся условиями равенства, объединенными через AND.
// Операции count/sum/max/min/avg возвращают скаляр; имена, начинающиеся с
// First, Last, Get или Single, возвращают одну строку (Last - в обратном порядке).
package dispatch

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/statement"
)

const (
	argOrderBy = "orderby"
	argColumns = "columns"
)

// Префиксы операций, возвращающих одну строку
var singlePrefixes = []string{"first", "last", "get", "single"}

// Arg - аргумент вызова. Пустое имя означает позиционный аргумент, который запрещен.
type Arg struct {
	Name  string
	Value record.Value
}

// Named создает именованный аргумент
func Named(name string, v any) Arg {
	return Arg{Name: name, Value: record.Of(v)}
}

// Positional создает позиционный аргумент (Dispatch его отклонит)
func Positional(v any) Arg {
	return Arg{Value: record.Of(v)}
}

// Call - описание динамического вызова
type Call struct {
	Op   string
	Args []Arg
}

// Kind - вид результата
type Kind int

const (
	// KindRecords - последовательность записей
	KindRecords Kind = iota
	// KindRecord - одна запись (может отсутствовать)
	KindRecord
	// KindScalar - значение агрегатной функции
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindScalar:
		return "scalar"
	default:
		return "records"
	}
}

// Plan - результат разбора вызова
type Plan struct {
	Kind      Kind
	Statement statement.Statement
}

// Result - результат выполнения вызова
type Result struct {
	Kind Kind

	// Record и Found заполняются для KindRecord
	Record record.Record
	Found  bool

	// Records заполняется для KindRecords
	Records []record.Record

	// Scalar заполняется для KindScalar
	Scalar record.Value
}

// Runner выполняет команды (обычно *executor.Executor)
type Runner interface {
	Query(ctx context.Context, stmt statement.Statement) iter.Seq2[record.Record, error]
	Scalar(ctx context.Context, stmt statement.Statement) (record.Value, error)
}

// Guard проверяет идентификаторы и фрагменты, пришедшие от вызывающего кода
type Guard interface {
	Identifier(name string) error
	Fragment(fragment string) error
}

// Dispatcher разбирает и выполняет вызовы для одной таблицы
type Dispatcher struct {
	builder *statement.Builder
	runner  Runner
	guard   Guard
}

// Option настраивает Dispatcher
type Option func(*Dispatcher)

// WithGuard включает проверку имен аргументов и значений orderby/columns
func WithGuard(g Guard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

// New создает диспетчер
func New(builder *statement.Builder, runner Runner, opts ...Option) *Dispatcher {
	d := &Dispatcher{builder: builder, runner: runner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Plan разбирает вызов в команду без выполнения
func (d *Dispatcher) Plan(call Call) (Plan, error) {
	for i, a := range call.Args {
		if strings.TrimSpace(a.Name) == "" {
			return Plan{}, errs.Usage("%s: argument %d is positional, named arguments are required", call.Op, i)
		}
	}

	orderBy := d.builder.PrimaryKey()
	columns := "*"
	var (
		where []string
		args  []record.Value
	)
	for _, a := range call.Args {
		switch strings.ToLower(a.Name) {
		case argOrderBy:
			orderBy = a.Value.String()
			if err := d.checkFragment(orderBy); err != nil {
				return Plan{}, err
			}
		case argColumns:
			columns = a.Value.String()
			if err := d.checkFragment(columns); err != nil {
				return Plan{}, err
			}
		default:
			if d.guard != nil {
				if err := d.guard.Identifier(a.Name); err != nil {
					return Plan{}, err
				}
			}
			where = append(where, fmt.Sprintf("%s = @%d", a.Name, len(args)))
			args = append(args, a.Value)
		}
	}
	whereSQL := strings.Join(where, " AND ")

	op := strings.ToLower(strings.TrimSpace(call.Op))
	if fn, ok := statement.ParseAggregate(op); ok {
		stmt, err := d.builder.BuildAggregate(fn, columns, whereSQL, args...)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Kind: KindScalar, Statement: stmt}, nil
	}

	kind := KindRecords
	limit := 0
	for _, prefix := range singlePrefixes {
		if strings.HasPrefix(op, prefix) {
			kind = KindRecord
			limit = 1
			if prefix == "last" && orderBy != "" {
				orderBy = reverseOrder(orderBy)
			}
			break
		}
	}

	stmt, err := d.builder.BuildSelect(statement.SelectSpec{
		Columns: columns,
		Where:   whereSQL,
		OrderBy: orderBy,
		Limit:   limit,
		Args:    args,
	})
	if err != nil {
		return Plan{}, err
	}
	return Plan{Kind: kind, Statement: stmt}, nil
}

// Dispatch разбирает и выполняет вызов
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (Result, error) {
	plan, err := d.Plan(call)
	if err != nil {
		return Result{}, err
	}

	switch plan.Kind {
	case KindScalar:
		v, err := d.runner.Scalar(ctx, plan.Statement)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindScalar, Scalar: v}, nil

	case KindRecord:
		for rec, err := range d.runner.Query(ctx, plan.Statement) {
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: KindRecord, Record: rec, Found: true}, nil
		}
		return Result{Kind: KindRecord}, nil

	default:
		var out []record.Record
		for rec, err := range d.runner.Query(ctx, plan.Statement) {
			if err != nil {
				return Result{}, err
			}
			out = append(out, rec)
		}
		return Result{Kind: KindRecords, Records: out}, nil
	}
}

func (d *Dispatcher) checkFragment(fragment string) error {
	if d.guard == nil {
		return nil
	}
	return d.guard.Fragment(fragment)
}

// reverseOrder меняет направление последнего ключа сортировки:
// DESC на ASC, ASC на DESC, без направления добавляет DESC.
func reverseOrder(orderBy string) string {
	trimmed := strings.TrimRight(orderBy, " \t")
	i := strings.LastIndexAny(trimmed, " \t")
	if i >= 0 {
		head, dir := trimmed[:i], trimmed[i+1:]
		switch {
		case strings.EqualFold(dir, "desc"):
			return head + " ASC"
		case strings.EqualFold(dir, "asc"):
			return head + " DESC"
		}
	}
	return trimmed + " DESC"
}
