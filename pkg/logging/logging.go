// Package logging настраивает zerolog для CLI и сервисов.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Формат вывода
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config - настройки логирования
type Config struct {
	// Level - trace, debug, info, warn, error. Пусто - info.
	Level string `yaml:"level,omitempty"`

	// Format - console (по умолчанию) или json
	Format string `yaml:"format,omitempty"`
}

// ParseLevel разбирает уровень логирования, пустая строка - info
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// New создает логгер, пишущий в w
func New(cfg Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (console, json)", cfg.Format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Setup настраивает глобальный логгер (stderr) и возвращает его
func Setup(cfg Config) (zerolog.Logger, error) {
	logger, err := New(cfg, os.Stderr)
	if err != nil {
		return logger, err
	}
	log.Logger = logger
	return logger, nil
}
