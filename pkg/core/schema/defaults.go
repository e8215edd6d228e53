package schema

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruslano69/tablekit/pkg/core/record"
)

// DefaultResolver интерпретирует выражения DEFAULT колонок в значения времени выполнения.
// Now и NewID можно подменить в тестах.
type DefaultResolver struct {
	Now   func() time.Time
	NewID func() string
}

// NewDefaultResolver создает резолвер с системными часами и случайными UUID
func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Выражения, означающие "текущий момент"
var timestampIdioms = []string{
	"getdate()",
	"getutcdate()",
	"sysdatetime()",
	"sysutcdatetime()",
	"sysdatetimeoffset()",
	"current_timestamp",
	"current_date",
	"localtimestamp",
	"now()",
	"datetime('now')",
	"date('now')",
}

// Выражения, генерирующие новый идентификатор
var identifierIdioms = []string{
	"newid()",
	"newsequentialid()",
	"gen_random_uuid()",
	"uuid_generate_v4()",
	"uuid()",
}

// DefaultValue интерпретирует выражение DEFAULT колонки через системный резолвер
func DefaultValue(col ColumnMeta) record.Value {
	return NewDefaultResolver().Value(col)
}

// Value возвращает значение по умолчанию для колонки:
//   - пустое выражение и NULL → NULL
//   - текущее время (getdate(), now(), CURRENT_TIMESTAMP, …) → сегодняшняя дата
//   - новый идентификатор (newid(), gen_random_uuid(), …) → новый UUID
//   - последовательности (nextval(...)) → NULL, значение назначит БД
//   - иначе выражение без внешних скобок и кавычек
func (r *DefaultResolver) Value(col ColumnMeta) record.Value {
	expr := strings.TrimSpace(col.Default)
	if expr == "" {
		return record.Null()
	}

	inner := stripParens(expr)
	lower := strings.ToLower(inner)

	switch {
	case lower == "" || lower == "null" || strings.HasPrefix(lower, "null::"):
		return record.Null()
	case strings.HasPrefix(lower, "nextval("), lower == "autoincrement":
		return record.Null()
	}

	for _, idiom := range timestampIdioms {
		if strings.HasPrefix(lower, idiom) {
			return record.Date(r.now())
		}
	}
	for _, idiom := range identifierIdioms {
		if strings.HasPrefix(lower, idiom) {
			return record.Text(r.newID())
		}
	}

	return record.Text(unquote(inner))
}

func (r *DefaultResolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *DefaultResolver) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

// stripParens снимает внешние парные скобки: "((0))" → "0"
func stripParens(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' && enclosing(s) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// enclosing проверяет что первая скобка закрывается последним символом.
// Для "(a) + (b)" вернет false.
func enclosing(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// unquote снимает одинарные кавычки и приведение типа PostgreSQL: 'open'::character varying → open
func unquote(s string) string {
	if !strings.HasPrefix(s, "'") {
		return s
	}
	end := strings.LastIndex(s, "'")
	if end <= 0 {
		return s
	}
	rest := strings.TrimSpace(s[end+1:])
	if rest != "" && !strings.HasPrefix(rest, "::") {
		return s
	}
	return strings.ReplaceAll(s[1:end], "''", "'")
}
