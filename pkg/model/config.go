package model

import (
	"github.com/rs/zerolog"

	"github.com/ruslano69/tablekit/pkg/audit"
	"github.com/ruslano69/tablekit/pkg/core/schema"
	"github.com/ruslano69/tablekit/pkg/driver"
	"github.com/ruslano69/tablekit/pkg/validation"
)

// TableBinding - привязка модели к таблице. Не меняется после создания модели.
type TableBinding struct {
	Table      string
	PrimaryKey string
	// Descriptor - колонка с человекочитаемым описанием строки (для KeyValues)
	Descriptor string
}

// Config - явная конфигурация модели
type Config struct {
	// Driver - подключение к базе данных (обязательно)
	Driver driver.Driver

	// Table, PrimaryKey (обязательны) и Descriptor (необязателен)
	Table      string
	PrimaryKey string
	Descriptor string

	// Hooks - проверки и обработчики жизненного цикла. nil - NopHooks.
	Hooks Hooks

	// Rules - декларативные правила валидации
	Rules *validation.RuleSet

	// Loader переопределяет чтение схемы. nil - запрос метаданных диалекта.
	Loader schema.Loader

	// Store - разделяемое хранилище схем (например Redis)
	Store schema.Store

	// Defaults интерпретирует DEFAULT выражения. nil - системные часы и UUID.
	Defaults *schema.DefaultResolver

	// Audit - журнал изменяющих операций
	Audit audit.Logger

	// Logger - логгер. nil - глобальный zerolog логгер.
	Logger *zerolog.Logger

	// StrictFragments включает проверку фрагментов WHERE/ORDER BY/JOIN,
	// списков колонок, имен аргументов диспетчера и произвольных запросов Query/Scalar
	StrictFragments bool

	// Coerce включает приведение текстовых значений к типам колонок
	Coerce bool
}
