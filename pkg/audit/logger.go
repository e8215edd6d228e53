// Package audit ведет журнал изменяющих операций (insert/update/delete)
// над таблицами. Записи синхронно передаются в один или несколько appender'ов:
// файл JSON lines, zerolog, таблица в базе данных.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger - интерфейс журнала аудита
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	Close() error
}

// Compile-time checks
var (
	_ Logger = (*AuditLogger)(nil)
	_ Logger = NullLogger{}
)

// LoggerConfig - конфигурация логгера
type LoggerConfig struct {
	// DefaultUser - пользователь по умолчанию (если не указан в entry)
	DefaultUser string

	// OnError - callback при ошибке записи
	OnError func(error)
}

// AuditLogger - синхронный логгер аудита
type AuditLogger struct {
	mu        sync.RWMutex
	appenders []Appender
	config    LoggerConfig
}

// NewLogger - создать новый audit logger
func NewLogger(config LoggerConfig, appenders ...Appender) *AuditLogger {
	return &AuditLogger{
		appenders: appenders,
		config:    config,
	}
}

// Log - записать audit entry во все appenders
func (l *AuditLogger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.User == "" {
		entry.User = l.config.DefaultUser
	}

	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstError error
	for _, appender := range appenders {
		if err := appender.Append(ctx, entry); err != nil {
			if firstError == nil {
				firstError = err
			}
			l.handleError(fmt.Errorf("appender failed: %w", err))
		}
	}
	return firstError
}

// AddAppender - добавить appender
func (l *AuditLogger) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.appenders = append(l.appenders, appender)
}

// Close - закрыть все appenders
func (l *AuditLogger) Close() error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstError error
	for _, appender := range appenders {
		if err := appender.Close(); err != nil {
			if firstError == nil {
				firstError = err
			}
			l.handleError(fmt.Errorf("close failed: %w", err))
		}
	}
	return firstError
}

func (l *AuditLogger) handleError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}

// NullLogger - пустой logger
type NullLogger struct{}

// Log - ничего не делает
func (NullLogger) Log(ctx context.Context, entry *Entry) error {
	return nil
}

// Close - ничего не делает
func (NullLogger) Close() error {
	return nil
}
