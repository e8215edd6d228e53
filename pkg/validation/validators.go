package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ruslano69/tablekit/pkg/core/record"
)

// currencyRegex - сумма с необязательным знаком валюты, разделителями тысяч и копейками
var currencyRegex = regexp.MustCompile(`^[-+]?[$€£₽¥]?\s?(\d{1,3}(,\d{3})+|\d+)(\.\d{1,2})?$`)

func messageOr(message, format, field string) string {
	if message != "" {
		return message
	}
	return strings.ReplaceAll(format, "%s", field)
}

func isBlank(v record.Value) bool {
	return v.IsNull() || strings.TrimSpace(v.String()) == ""
}

func isNumeric(v record.Value) bool {
	switch v.Kind() {
	case record.KindInt, record.KindFloat:
		return true
	case record.KindText:
		_, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		return err == nil
	default:
		return false
	}
}

func isCurrency(v record.Value) bool {
	switch v.Kind() {
	case record.KindInt, record.KindFloat:
		return true
	case record.KindText:
		return currencyRegex.MatchString(strings.TrimSpace(v.String()))
	default:
		return false
	}
}

// ValidatesPresenceOf добавляет ошибку, если значение NULL или пустая строка
func (s *ErrorSet) ValidatesPresenceOf(field string, v record.Value, message string) {
	if isBlank(v) {
		s.Add(messageOr(message, "%s is required", field))
	}
}

// ValidatesNumericalityOf добавляет ошибку, если значение не число.
// NULL пропускается, обязательность проверяет ValidatesPresenceOf.
func (s *ErrorSet) ValidatesNumericalityOf(field string, v record.Value, message string) {
	if v.IsNull() {
		return
	}
	if !isNumeric(v) {
		s.Add(messageOr(message, "%s must be a number", field))
	}
}

// ValidatesCurrency добавляет ошибку, если значение не денежная сумма ("$1,234.50", "99.9")
func (s *ErrorSet) ValidatesCurrency(field string, v record.Value, message string) {
	if v.IsNull() {
		return
	}
	if !isCurrency(v) {
		s.Add(messageOr(message, "%s must be a currency amount", field))
	}
}

// ValidatesLengthOf проверяет длину строки в символах. max <= 0 - без верхней границы.
func (s *ErrorSet) ValidatesLengthOf(field string, v record.Value, min, max int, message string) {
	if v.IsNull() {
		return
	}
	n := utf8.RuneCountInString(v.String())
	if n < min || (max > 0 && n > max) {
		s.Add(messageOr(message, "%s has invalid length", field))
	}
}

// ValidatesFormatOf добавляет ошибку, если значение не соответствует выражению
func (s *ErrorSet) ValidatesFormatOf(field string, v record.Value, re *regexp.Regexp, message string) {
	if v.IsNull() {
		return
	}
	if !re.MatchString(v.String()) {
		s.Add(messageOr(message, "%s has invalid format", field))
	}
}
