package audit

import (
	"context"
	"errors"
)

// Appender - интерфейс для записи audit логов
type Appender interface {
	// Append - записать audit entry
	Append(ctx context.Context, entry *Entry) error

	// Close - закрыть appender
	Close() error
}

// MultiAppender - запись в несколько appenders.
// Ошибка одного appender не мешает записи в остальные.
type MultiAppender struct {
	appenders []Appender
}

// NewMultiAppender - создать multi appender
func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{
		appenders: appenders,
	}
}

// Append - записать во все appenders
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var errList []error
	for _, appender := range ma.appenders {
		if err := appender.Append(ctx, entry); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Close - закрыть все appenders
func (ma *MultiAppender) Close() error {
	var errList []error
	for _, appender := range ma.appenders {
		if err := appender.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Add - добавить appender
func (ma *MultiAppender) Add(appender Appender) {
	ma.appenders = append(ma.appenders, appender)
}
