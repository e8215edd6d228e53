// Package validation содержит ErrorSet - список сообщений о нарушениях,
// который заполняется при каждой проверке записи, и декларативные правила
// проверки полей.
package validation

import (
	"fmt"
	"strings"

	"github.com/ruslano69/tablekit/pkg/core/errs"
)

// ErrorSet - упорядоченный список сообщений об ошибках валидации.
// Нулевое значение готово к использованию. Не потокобезопасен.
type ErrorSet struct {
	messages []string
}

// Add добавляет сообщение
func (s *ErrorSet) Add(message string) {
	s.messages = append(s.messages, message)
}

// Addf добавляет форматированное сообщение
func (s *ErrorSet) Addf(format string, args ...any) {
	s.Add(fmt.Sprintf(format, args...))
}

// Reset очищает список перед новой проверкой
func (s *ErrorSet) Reset() {
	s.messages = s.messages[:0]
}

// Len возвращает число сообщений
func (s *ErrorSet) Len() int {
	return len(s.messages)
}

// Empty сообщает, что ошибок нет
func (s *ErrorSet) Empty() bool {
	return len(s.messages) == 0
}

// Messages возвращает копию сообщений
func (s *ErrorSet) Messages() []string {
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

// Err возвращает *ValidationError со всеми сообщениями или nil
func (s *ErrorSet) Err() error {
	if s.Empty() {
		return nil
	}
	return &ValidationError{Messages: s.Messages()}
}

// ValidationError - запись не прошла валидацию.
// errors.Is(err, errs.ErrValidation) возвращает true.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Is позволяет errors.Is(err, errs.ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == errs.ErrValidation
}
