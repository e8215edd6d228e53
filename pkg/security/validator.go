// Package security проверяет SQL текст, пришедший от вызывающего кода.
//
// SQLValidator пропускает только читающие запросы (SELECT/WITH) для
// произвольного SQL. FragmentValidator проверяет фрагменты WHERE/ORDER BY/JOIN
// и имена колонок, которые подставляются в команды как есть.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/errs"
)

// forbiddenKeywords - ключевые слова изменяющих и служебных команд
var forbiddenKeywords = map[string]struct{}{
	// DML
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "TRUNCATE": {}, "MERGE": {},
	// DDL
	"DROP": {}, "CREATE": {}, "ALTER": {}, "RENAME": {},
	// DCL
	"GRANT": {}, "REVOKE": {},
	// процедуры
	"EXECUTE": {}, "EXEC": {}, "CALL": {},
	// SQLite
	"PRAGMA": {}, "ATTACH": {}, "DETACH": {},
	// транзакции
	"BEGIN": {}, "COMMIT": {}, "ROLLBACK": {},
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// SQLValidator проверяет SQL запросы на соответствие политикам безопасности.
//
// В safe mode разрешены только SELECT и WITH запросы,
// блокируются все изменяющие операции (INSERT, UPDATE, DELETE, DROP, etc).
// В unsafe mode все запросы разрешены.
type SQLValidator struct {
	safeMode bool
}

// NewSQLValidator создает новый SQL валидатор
func NewSQLValidator(safeMode bool) *SQLValidator {
	return &SQLValidator{
		safeMode: safeMode,
	}
}

// Validate проверяет SQL запрос.
//
// В safe mode проверяет:
//   - Запрос начинается с SELECT или WITH
//   - Отсутствуют запрещенные ключевые слова (DROP, DELETE, UPDATE, etc)
//   - Нет множественных команд (через ;)
//   - Нет SQL комментариев
//
// Содержимое строковых литералов не проверяется.
func (v *SQLValidator) Validate(sql string) error {
	if !v.safeMode {
		return nil
	}

	code := stripLiterals(sql)
	normalized := strings.ToUpper(strings.TrimSpace(code))

	if !strings.HasPrefix(normalized, "SELECT") && !strings.HasPrefix(normalized, "WITH") {
		return errs.Usage("only SELECT and WITH queries allowed in safe mode, got: %s",
			getQueryType(normalized))
	}
	if err := checkForbiddenKeywords(normalized); err != nil {
		return err
	}
	if err := checkMultipleStatements(code); err != nil {
		return err
	}
	return checkComments(code)
}

// IsSafeMode возвращает текущий режим валидатора
func (v *SQLValidator) IsSafeMode() bool {
	return v.safeMode
}

// SetSafeMode устанавливает режим валидатора
func (v *SQLValidator) SetSafeMode(safeMode bool) {
	v.safeMode = safeMode
}

// FragmentValidator - строгая проверка идентификаторов и фрагментов SQL.
// Реализует dispatch.Guard.
type FragmentValidator struct{}

// NewFragmentValidator создает валидатор фрагментов
func NewFragmentValidator() *FragmentValidator {
	return &FragmentValidator{}
}

// Identifier проверяет имя колонки: буквы, цифры, подчеркивание, точка между частями
func (FragmentValidator) Identifier(name string) error {
	if !identifierRegex.MatchString(strings.TrimSpace(name)) {
		return errs.Usage("invalid identifier %q", name)
	}
	return nil
}

// Fragment проверяет фрагмент WHERE/ORDER BY/JOIN или список колонок:
// без разделителей команд, комментариев и ключевых слов изменяющих команд
func (FragmentValidator) Fragment(fragment string) error {
	code := stripLiterals(fragment)
	if strings.TrimSpace(code) == "" {
		return nil
	}
	if strings.Contains(code, ";") {
		return errs.Usage("statement separator not allowed in fragment %q", fragment)
	}
	if err := checkComments(code); err != nil {
		return fmt.Errorf("fragment %q: %w", fragment, err)
	}
	if err := checkForbiddenKeywords(strings.ToUpper(code)); err != nil {
		return fmt.Errorf("fragment %q: %w", fragment, err)
	}
	return nil
}

// checkForbiddenKeywords ищет запрещенные ключевые слова как отдельные слова.
// DELETED_AT или SELECTED не совпадают с DELETE и SELECT.
func checkForbiddenKeywords(sql string) error {
	words := strings.FieldsFunc(stripLiterals(sql), func(r rune) bool {
		return !(r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, w := range words {
		if _, bad := forbiddenKeywords[strings.ToUpper(w)]; bad {
			return errs.Usage("forbidden keyword '%s' found in safe mode", strings.ToUpper(w))
		}
	}
	return nil
}

// checkMultipleStatements разрешает максимум одну точку с запятой в конце
func checkMultipleStatements(sql string) error {
	semicolonCount := strings.Count(sql, ";")
	if semicolonCount > 1 {
		return errs.Usage("multiple statements not allowed in safe mode")
	}
	if semicolonCount == 1 && !strings.HasSuffix(strings.TrimSpace(sql), ";") {
		return errs.Usage("semicolon allowed only at the end of query")
	}
	return nil
}

// checkComments запрещает комментарии -- и /* */
func checkComments(sql string) error {
	if strings.Contains(sql, "--") {
		return errs.Usage("SQL comments (--) not allowed in safe mode")
	}
	if strings.Contains(sql, "/*") || strings.Contains(sql, "*/") {
		return errs.Usage("SQL comments (/* */) not allowed in safe mode")
	}
	return nil
}

// stripLiterals заменяет содержимое строковых литералов '...' пробелами.
// Удвоенная кавычка внутри литерала разбирается как два соседних литерала.
// Незакрытый литерал оставляется как есть.
func stripLiterals(sql string) string {
	b := []byte(sql)
	for i := 0; i < len(b); i++ {
		if b[i] != '\'' {
			continue
		}
		end := strings.IndexByte(sql[i+1:], '\'')
		if end < 0 {
			break
		}
		for j := i + 1; j <= i+end; j++ {
			b[j] = ' '
		}
		i += end + 1
	}
	return string(b)
}

// getQueryType определяет тип SQL запроса для сообщения об ошибке
func getQueryType(sql string) string {
	parts := strings.Fields(sql)
	if len(parts) > 0 {
		return parts[0]
	}
	return "UNKNOWN"
}
