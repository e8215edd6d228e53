package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tablekit/pkg/adapters"
	"github.com/ruslano69/tablekit/pkg/audit"
	"github.com/ruslano69/tablekit/pkg/config"
	"github.com/ruslano69/tablekit/pkg/executor"
	"github.com/ruslano69/tablekit/pkg/model"
	"github.com/ruslano69/tablekit/pkg/schemastore"
	"github.com/ruslano69/tablekit/pkg/security"
)

// app - подключение к базе и общие ресурсы одного запуска CLI
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	adapter adapters.Adapter
	store   *schemastore.RedisStore
	audit   *audit.AuditLogger
	// auditTable задан, если аудит пишется в таблицу базы
	auditTable *audit.DatabaseAppender
}

// openApp подключается к базе, хранилищу схем и журналу аудита
func openApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	ac := cfg.AdapterConfig()
	ac.Logger = &logger
	adapter, err := adapters.New(ctx, ac)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, adapter: adapter}

	if cfg.SchemaStore.Enabled {
		a.store = schemastore.NewRedisStore(cfg.StoreConfig())
		if err := a.store.Ping(ctx); err != nil {
			// Хранилище схем необязательно: работаем напрямую с базой
			logger.Warn().Err(err).Str("address", cfg.SchemaStore.Address).Msg("schema store unavailable")
			a.store.Close()
			a.store = nil
		}
	}

	if cfg.Audit.Enabled {
		if err := a.openAudit(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openAudit(ctx context.Context) error {
	ac := a.cfg.Audit
	level, err := audit.ParseLevel(ac.Level)
	if err != nil {
		return err
	}

	var appenders []audit.Appender
	if ac.File != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   ac.File,
			MaxSize:    int64(ac.MaxSize) << 20,
			MaxBackups: ac.MaxBackups,
			Level:      level,
			FormatJSON: true,
		})
		if err != nil {
			return err
		}
		appenders = append(appenders, fa)
	}
	if ac.Console {
		appenders = append(appenders, audit.NewZerologAppender(a.logger, level))
	}
	if ac.Table != "" {
		da, err := audit.NewDatabaseAppender(ctx, audit.DatabaseAppenderConfig{
			Executor:        executor.New(a.adapter, executor.WithLogger(a.logger)),
			TableName:       ac.Table,
			Level:           level,
			AutoCreateTable: true,
		})
		if err != nil {
			for _, ap := range appenders {
				ap.Close()
			}
			return err
		}
		appenders = append(appenders, da)
		a.auditTable = da
	}

	a.audit = audit.NewLogger(audit.LoggerConfig{
		DefaultUser: security.GetCurrentUser(),
		OnError: func(err error) {
			a.logger.Warn().Err(err).Msg("audit append failed")
		},
	}, appenders...)
	return nil
}

// model создает модель таблицы. Таблицы из конфигурации получают ключ,
// описание и правила оттуда, остальные - из флагов.
func (a *app) model(flags *Flags) (*model.Model, error) {
	if flags.Table == "" {
		return nil, errors.New("--table is required for this command")
	}

	binding := config.TableConfig{Name: flags.Table, PrimaryKey: flags.PrimaryKey, Descriptor: flags.Descriptor}
	if tc, ok := a.cfg.Table(flags.Table); ok {
		binding = tc
	}
	rules, err := binding.RuleSet()
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", binding.Name, err)
	}

	mc := model.Config{
		Driver:          a.adapter,
		Table:           binding.Name,
		PrimaryKey:      binding.PrimaryKey,
		Descriptor:      binding.Descriptor,
		Rules:           rules,
		Logger:          &a.logger,
		StrictFragments: a.cfg.StrictFragments,
		// Значения из командной строки и XLSX приходят текстом
		Coerce: true,
	}
	if a.store != nil {
		mc.Store = a.store
	}
	if a.audit != nil {
		mc.Audit = a.audit
	}
	return model.New(mc)
}

// Close освобождает ресурсы в обратном порядке
func (a *app) Close(ctx context.Context) {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close audit log")
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	if err := a.adapter.Close(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close database")
	}
}
