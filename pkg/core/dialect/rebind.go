package dialect

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/ruslano69/tablekit/pkg/core/record"
)

// Rebind переписывает плейсхолдеры @0, @1, … в стиль драйвера и готовит
// аргументы для передачи драйверу.
//
// Для PlaceholderQuestion аргументы раскладываются в порядке появления
// плейсхолдеров в тексте (один и тот же @i может встречаться несколько раз).
// Для $n и @pn порядок аргументов сохраняется.
//
// Строковые литералы, квотированные идентификаторы, комментарии и
// системные переменные вида @@IDENTITY не затрагиваются.
func (d Dialect) Rebind(query string, args []record.Value) (string, []any, error) {
	out := make([]byte, 0, len(query)+16)
	var ordered []any
	if d.Placeholder != PlaceholderQuestion {
		ordered = make([]any, len(args))
		for i, a := range args {
			ordered[i] = a.Any()
		}
	}

	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'':
			j := skipQuoted(query, i+w, '\'')
			out = append(out, query[i:j]...)
			i = j
			continue
		case '"':
			j := skipQuoted(query, i+w, '"')
			out = append(out, query[i:j]...)
			i = j
			continue
		case '`':
			j := skipQuoted(query, i+w, '`')
			out = append(out, query[i:j]...)
			i = j
			continue
		case '[':
			j := skipQuoted(query, i+w, ']')
			out = append(out, query[i:j]...)
			i = j
			continue
		case '-':
			if hasPrefix(query[i:], "--") {
				j := skipLineComment(query, i+2)
				out = append(out, query[i:j]...)
				i = j
				continue
			}
		case '/':
			if hasPrefix(query[i:], "/*") {
				j := skipBlockComment(query, i+2)
				out = append(out, query[i:j]...)
				i = j
				continue
			}
		case '@':
			if hasPrefix(query[i:], "@@") {
				// системная переменная: копируем имя целиком
				j := i + 2
				for j < len(query) && isIdentByte(query[j]) {
					j++
				}
				out = append(out, query[i:j]...)
				i = j
				continue
			}
			if prevIsIdent(query, i) {
				break
			}
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j == i+1 {
				break
			}
			n, err := strconv.Atoi(query[i+1 : j])
			if err != nil {
				return "", nil, fmt.Errorf("invalid placeholder %s: %w", query[i:j], err)
			}
			if n >= len(args) {
				return "", nil, fmt.Errorf("placeholder @%d has no bound value (%d args)", n, len(args))
			}
			switch d.Placeholder {
			case PlaceholderDollar:
				out = append(out, '$')
				out = strconv.AppendInt(out, int64(n+1), 10)
			case PlaceholderAtP:
				out = append(out, '@', 'p')
				out = strconv.AppendInt(out, int64(n+1), 10)
			default:
				out = append(out, '?')
				ordered = append(ordered, args[n].Any())
			}
			i = j
			continue
		}
		out = append(out, query[i:i+w]...)
		i += w
	}
	return string(out), ordered, nil
}

// skipQuoted пропускает литерал до закрывающего символа (удвоенный символ - экранирование)
func skipQuoted(s string, i int, closing byte) int {
	for i < len(s) {
		if s[i] == closing {
			if i+1 < len(s) && s[i+1] == closing && closing != ']' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(s)
}

func skipLineComment(s string, i int) int {
	for i < len(s) && s[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(s string, i int) int {
	for i+1 < len(s) {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(s)
}

func hasPrefix(s, p string) bool { return len(s) >= len(p) && s[:len(p)] == p }

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' || b == '#' || (b >= '0' && b <= '9') || unicode.IsLetter(rune(b))
}

// prevIsIdent - символ перед '@' является частью идентификатора (например email@0day)
func prevIsIdent(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Count возвращает количество различных плейсхолдеров @n в запросе
// (с учетом тех же правил пропуска литералов и комментариев).
func Count(query string) int {
	seen := make(map[int]struct{})
	i := 0
	for i < len(query) {
		switch query[i] {
		case '\'':
			i = skipQuoted(query, i+1, '\'')
			continue
		case '"':
			i = skipQuoted(query, i+1, '"')
			continue
		case '[':
			i = skipQuoted(query, i+1, ']')
			continue
		case '-':
			if hasPrefix(query[i:], "--") {
				i = skipLineComment(query, i+2)
				continue
			}
		case '/':
			if hasPrefix(query[i:], "/*") {
				i = skipBlockComment(query, i+2)
				continue
			}
		case '@':
			if hasPrefix(query[i:], "@@") {
				i += 2
				for i < len(query) && isIdentByte(query[i]) {
					i++
				}
				continue
			}
			if !prevIsIdent(query, i) {
				j := i + 1
				for j < len(query) && query[j] >= '0' && query[j] <= '9' {
					j++
				}
				if j > i+1 {
					n, _ := strconv.Atoi(query[i+1 : j])
					seen[n] = struct{}{}
					i = j
					continue
				}
			}
		}
		i++
	}
	return len(seen)
}
