package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const (
	defaultMaxSize    = 100 << 20
	defaultMaxBackups = 5
)

// FileAppender - запись в файл (JSON lines или текст) с ротацией по размеру.
// При ротации текущий файл становится <path>.1, старые копии сдвигаются,
// копии сверх MaxBackups удаляются.
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	filePath    string
	maxSize     int64
	maxBackups  int
	currentSize int64
	level       Level
	formatJSON  bool
}

// FileAppenderConfig - конфигурация file appender
type FileAppenderConfig struct {
	FilePath string
	// MaxSize - размер файла в байтах, после которого выполняется ротация (0 = 100 MB)
	MaxSize    int64
	MaxBackups int
	Level      Level
	FormatJSON bool
}

// NewFileAppender - создать file appender
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("audit file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	maxBackups := config.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	return &FileAppender{
		file:        file,
		filePath:    config.FilePath,
		maxSize:     maxSize,
		maxBackups:  maxBackups,
		currentSize: fileInfo.Size(),
		level:       config.Level,
		formatJSON:  config.FormatJSON,
	}, nil
}

// Append - записать entry в файл
func (fa *FileAppender) Append(ctx context.Context, entry *Entry) error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return fmt.Errorf("audit file %s is closed", fa.filePath)
	}

	filtered := entry.FilterByLevel(fa.level)

	var data []byte
	if fa.formatJSON {
		var err error
		data, err = filtered.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		data = append(data, '\n')
	} else {
		data = []byte(filtered.String() + "\n")
	}

	if fa.currentSize > 0 && fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	fa.currentSize += int64(n)
	return nil
}

// rotate - ротация файлов
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}
	fa.file = nil

	// Самая старая копия вытесняется
	oldest := fmt.Sprintf("%s.%d", fa.filePath, fa.maxBackups)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := fa.maxBackups - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", fa.filePath, i)
		if _, err := os.Stat(oldPath); err != nil {
			continue
		}
		if err := os.Rename(oldPath, fmt.Sprintf("%s.%d", fa.filePath, i+1)); err != nil {
			return err
		}
	}
	if err := os.Rename(fa.filePath, fa.filePath+".1"); err != nil {
		return err
	}

	file, err := os.OpenFile(fa.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	fa.file = file
	fa.currentSize = 0
	return nil
}

// Close - закрыть файл
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return nil
	}
	err := fa.file.Close()
	fa.file = nil
	return err
}

// Flush - сбросить буфер
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file != nil {
		return fa.file.Sync()
	}
	return nil
}

// CurrentSize - текущий размер файла
func (fa *FileAppender) CurrentSize() int64 {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.currentSize
}

// FilePath - путь к файлу
func (fa *FileAppender) FilePath() string {
	return fa.filePath
}

// ZerologAppender - запись audit entries в структурированный лог
type ZerologAppender struct {
	logger zerolog.Logger
	level  Level
}

// NewZerologAppender - создать appender поверх zerolog логгера
func NewZerologAppender(logger zerolog.Logger, level Level) *ZerologAppender {
	return &ZerologAppender{logger: logger, level: level}
}

// Append - записать entry. Неуспешные операции пишутся с уровнем warn.
func (za *ZerologAppender) Append(ctx context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(za.level)

	event := za.logger.Info()
	if filtered.Status != StatusSuccess {
		event = za.logger.Warn()
	}
	event = event.
		Str("audit_id", filtered.ID).
		Str("operation", string(filtered.Operation)).
		Str("status", string(filtered.Status)).
		Str("table", filtered.Table).
		Int64("records_affected", filtered.RecordsAffected).
		Dur("duration", filtered.Duration)
	if filtered.User != "" {
		event = event.Str("user", filtered.User)
	}
	if filtered.Key != "" {
		event = event.Str("key", filtered.Key)
	}
	if filtered.ErrorMessage != "" {
		event = event.Str("error", filtered.ErrorMessage)
	}
	if len(filtered.Fields) > 0 {
		event = event.Interface("fields", filtered.Fields)
	}
	event.Msg("audit")
	return nil
}

// Close - ничего не делает
func (za *ZerologAppender) Close() error {
	return nil
}
