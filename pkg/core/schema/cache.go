package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablekit/pkg/metrics"
)

// Loader читает метаданные колонок таблицы из базы данных
type Loader interface {
	LoadColumns(ctx context.Context, table string) ([]ColumnMeta, error)
}

// LoaderFunc - адаптер функции к Loader
type LoaderFunc func(ctx context.Context, table string) ([]ColumnMeta, error)

// LoadColumns вызывает f
func (f LoaderFunc) LoadColumns(ctx context.Context, table string) ([]ColumnMeta, error) {
	return f(ctx, table)
}

// Store - разделяемое хранилище схем второго уровня (например Redis).
// found=false без ошибки означает промах.
type Store interface {
	Get(ctx context.Context, table string) (cols []ColumnMeta, found bool, err error)
	Put(ctx context.Context, table string, cols []ColumnMeta) error
	Invalidate(ctx context.Context, table string) error
}

// Cache - кэш схемы одной таблицы.
// Схема загружается один раз при первом обращении и далее не перечитывается.
// Заполнение защищено мьютексом, поэтому параллельный первый доступ
// выполняет ровно одну загрузку.
type Cache struct {
	table  string
	loader Loader
	store  Store
	logger zerolog.Logger

	mu      sync.Mutex
	loaded  bool
	columns []ColumnMeta
	index   map[string]int
}

// CacheOption настраивает Cache
type CacheOption func(*Cache)

// WithStore подключает хранилище второго уровня
func WithStore(s Store) CacheOption {
	return func(c *Cache) { c.store = s }
}

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// NewCache создает кэш схемы для таблицы
func NewCache(table string, loader Loader, opts ...CacheOption) *Cache {
	c := &Cache{
		table:  table,
		loader: loader,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table возвращает имя таблицы
func (c *Cache) Table() string {
	return c.table
}

// Columns возвращает схему таблицы, загружая ее при первом вызове.
// Ошибка загрузки не кэшируется: следующий вызов повторит попытку.
func (c *Cache) Columns(ctx context.Context) ([]ColumnMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.fill(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]ColumnMeta, len(c.columns))
	copy(out, c.columns)
	return out, nil
}

// Column ищет колонку по имени без учета регистра
func (c *Cache) Column(ctx context.Context, name string) (ColumnMeta, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.fill(ctx); err != nil {
			return ColumnMeta{}, false, err
		}
	}

	i, ok := c.index[strings.ToLower(name)]
	if !ok {
		return ColumnMeta{}, false, nil
	}
	return c.columns[i], true, nil
}

// Invalidate сбрасывает загруженную схему и удаляет ее из хранилища второго уровня
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = false
	c.columns = nil
	c.index = nil
	if c.store != nil {
		return c.store.Invalidate(ctx, c.table)
	}
	return nil
}

// fill загружает схему. Вызывается под c.mu.
func (c *Cache) fill(ctx context.Context) error {
	if c.store != nil {
		cols, found, err := c.store.Get(ctx, c.table)
		if err != nil {
			// Хранилище второго уровня необязательно: читаем из БД
			c.logger.Warn().Err(err).Str("table", c.table).Msg("schema store read failed")
		} else if found && len(cols) > 0 {
			c.set(cols)
			metrics.SchemaLoaded("store")
			c.logger.Debug().Str("table", c.table).Int("columns", len(cols)).Msg("schema loaded from store")
			return nil
		}
	}

	if c.loader == nil {
		return fmt.Errorf("schema loader is not configured for table %s", c.table)
	}

	cols, err := c.loader.LoadColumns(ctx, c.table)
	if err != nil {
		return err
	}
	c.set(cols)
	metrics.SchemaLoaded("database")
	c.logger.Debug().Str("table", c.table).Int("columns", len(cols)).Msg("schema loaded")

	if c.store != nil && len(cols) > 0 {
		if err := c.store.Put(ctx, c.table, cols); err != nil {
			c.logger.Warn().Err(err).Str("table", c.table).Msg("schema store write failed")
		}
	}
	return nil
}

func (c *Cache) set(cols []ColumnMeta) {
	c.columns = make([]ColumnMeta, len(cols))
	copy(c.columns, cols)
	c.index = make(map[string]int, len(cols))
	for i, col := range c.columns {
		if col.Ordinal == 0 {
			c.columns[i].Ordinal = i + 1
		}
		if col.Type == "" {
			c.columns[i].Type = FromSQLType(col.SQLType)
		}
		c.index[strings.ToLower(col.Name)] = i
	}
	c.loaded = true
}
