package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Level - уровень детализации логирования
type Level int

const (
	// LevelMinimal - операция, статус, таблица
	LevelMinimal Level = iota

	// LevelStandard - плюс ключ записи
	LevelStandard

	// LevelFull - плюс значения полей
	LevelFull
)

// String - строковое представление уровня
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel разбирает уровень из конфигурации. Пусто - standard.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "minimal":
		return LevelMinimal, nil
	case "", "standard":
		return LevelStandard, nil
	case "full":
		return LevelFull, nil
	default:
		return LevelStandard, fmt.Errorf("unknown audit level: %s", s)
	}
}

// Operation - тип изменяющей операции
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Status - статус выполнения операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	// StatusAborted - операцию отменил before-хук
	StatusAborted Status = "aborted"
	// StatusInvalid - запись не прошла валидацию
	StatusInvalid Status = "invalid"
)

// Entry - запись в audit логе
type Entry struct {
	// ID - уникальный идентификатор записи
	ID string `json:"id"`

	// Timestamp - время операции
	Timestamp time.Time `json:"timestamp"`

	// Operation - тип операции
	Operation Operation `json:"operation"`

	// Status - статус выполнения
	Status Status `json:"status"`

	// User - пользователь или система
	User string `json:"user,omitempty"`

	// Table - таблица
	Table string `json:"table"`

	// Key - первичный ключ записи (текстом)
	Key string `json:"key,omitempty"`

	// RecordsAffected - количество затронутых строк
	RecordsAffected int64 `json:"records_affected,omitempty"`

	// Duration - длительность операции
	Duration time.Duration `json:"duration,omitempty"`

	// ErrorMessage - сообщение об ошибке
	ErrorMessage string `json:"error_message,omitempty"`

	// Fields - значения полей (только для LevelFull)
	Fields map[string]any `json:"fields,omitempty"`
}

// NewEntry - создать новую audit запись
func NewEntry(operation Operation, table string) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    StatusSuccess,
		Table:     table,
	}
}

// WithUser - установить пользователя
func (e *Entry) WithUser(user string) *Entry {
	e.User = user
	return e
}

// WithKey - установить ключ записи
func (e *Entry) WithKey(key string) *Entry {
	e.Key = key
	return e
}

// WithRecordsAffected - установить количество записей
func (e *Entry) WithRecordsAffected(count int64) *Entry {
	e.RecordsAffected = count
	return e
}

// WithDuration - установить длительность
func (e *Entry) WithDuration(duration time.Duration) *Entry {
	e.Duration = duration
	return e
}

// WithStatus - установить статус
func (e *Entry) WithStatus(status Status) *Entry {
	e.Status = status
	return e
}

// WithError - установить ошибку. Статус failure, если не задан более точный.
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.ErrorMessage = err.Error()
		if e.Status == StatusSuccess {
			e.Status = StatusFailure
		}
	}
	return e
}

// WithFields - установить значения полей
func (e *Entry) WithFields(fields map[string]any) *Entry {
	e.Fields = fields
	return e
}

// ToJSON - преобразовать в JSON
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String - строковое представление
func (e *Entry) String() string {
	return fmt.Sprintf("[%s] %s %s %s (table=%s, key=%s, records=%d, duration=%v)",
		e.Timestamp.Format(time.RFC3339),
		e.Operation,
		e.Status,
		e.User,
		e.Table,
		e.Key,
		e.RecordsAffected,
		e.Duration,
	)
}

// Clone - создать копию записи
func (e *Entry) Clone() *Entry {
	clone := *e

	if e.Fields != nil {
		clone.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			clone.Fields[k] = v
		}
	}

	return &clone
}

// FilterByLevel - копия записи без данных, не положенных уровню
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		filtered.Key = ""
		filtered.Fields = nil

	case LevelStandard:
		filtered.Fields = nil
	}

	return filtered
}
