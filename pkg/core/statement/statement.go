// Package statement генерирует параметризованные SQL команды для одной таблицы.
//
// Значения всегда передаются через плейсхолдеры @0, @1, … в порядке
// добавления. Имена таблиц и колонок, а также фрагменты WHERE/ORDER BY/JOIN
// подставляются в текст как есть: это доверенный ввод вызывающего кода.
package statement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/dialect"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
)

// Statement - текст SQL с плейсхолдерами @n и значения для них
type Statement struct {
	SQL  string
	Args []record.Value
}

// New создает команду и проверяет что число различных плейсхолдеров равно числу значений
func New(sql string, args ...record.Value) (Statement, error) {
	if n := dialect.Count(sql); n != len(args) {
		return Statement{}, errs.Configuration("statement has %d placeholders but %d values: %s", n, len(args), sql)
	}
	return Statement{SQL: sql, Args: args}, nil
}

// String возвращает SQL и значения для логов
func (s Statement) String() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		if a.IsNull() {
			parts[i] = "NULL"
			continue
		}
		parts[i] = strconv.Quote(a.String())
	}
	return fmt.Sprintf("%s [%s]", s.SQL, strings.Join(parts, ", "))
}

// placeholder возвращает "@n"
func placeholder(n int) string {
	return "@" + strconv.Itoa(n)
}

// prefixed добавляет ключевое слово к фрагменту, если вызывающий его опустил:
// "a = @0" → "WHERE a = @0", "where a = @0" остается как есть.
func prefixed(fragment, keyword string) string {
	f := strings.TrimSpace(fragment)
	if f == "" {
		return ""
	}
	if len(f) > len(keyword) && strings.EqualFold(f[:len(keyword)], keyword) {
		next := f[len(keyword)]
		if next == ' ' || next == '\t' || next == '\n' || next == '\r' || next == '(' {
			return f
		}
	}
	return keyword + " " + f
}

// stripKeyword снимает ведущее ключевое слово: "ORDER BY name" → "name"
func stripKeyword(fragment, keyword string) string {
	f := strings.TrimSpace(fragment)
	if len(f) > len(keyword) && strings.EqualFold(f[:len(keyword)], keyword) {
		next := f[len(keyword)]
		if next == ' ' || next == '\t' || next == '\n' || next == '\r' {
			return strings.TrimSpace(f[len(keyword):])
		}
	}
	return f
}

// joinClauses собирает части SQL через пробел, пропуская пустые
func joinClauses(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
