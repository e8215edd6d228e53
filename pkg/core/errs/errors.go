// Package errs определяет таксономию ошибок слоя доступа к данным.
//
// Каждый вид ошибки представлен sentinel-значением, конкретные ошибки
// оборачивают его через %w, поэтому проверка выполняется через errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration - неверная конфигурация или пустая запись для INSERT/UPDATE
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation - запись не прошла валидацию
	ErrValidation = errors.New("validation error")

	// ErrUsage - нарушение контракта вызова (например, позиционные аргументы в Dispatch)
	ErrUsage = errors.New("usage error")

	// ErrDriver - ошибка драйвера БД (подключение, выполнение, транзакция)
	ErrDriver = errors.New("driver error")
)

// Configuration создает ошибку конфигурации
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Usage создает ошибку использования
func Usage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// DriverError оборачивает ошибку драйвера, не скрывая ее.
// errors.Is/As видят как ErrDriver, так и исходную ошибку.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap возвращает исходную ошибку драйвера
func (e *DriverError) Unwrap() error {
	return e.Err
}

// Is позволяет errors.Is(err, ErrDriver)
func (e *DriverError) Is(target error) bool {
	return target == ErrDriver
}

// Driver оборачивает err в DriverError. nil остается nil,
// уже обернутая ошибка не оборачивается повторно.
func Driver(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DriverError
	if errors.As(err, &de) {
		return err
	}
	return &DriverError{Op: op, Err: err}
}
