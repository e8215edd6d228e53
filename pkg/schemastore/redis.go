// Package schemastore хранит метаданные колонок в Redis, чтобы процессы,
// работающие с одной базой, не перечитывали схему каждый по отдельности.
//
// Redis-ключи:
//
//	SET  tablekit:schema:<database>:<table>  <JSON>  EX <ttl>
package schemastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tablekit/pkg/core/schema"
)

// DefaultPrefix - префикс ключей по умолчанию
const DefaultPrefix = "tablekit:schema"

// Compile-time check
var _ schema.Store = (*RedisStore)(nil)

// Config - настройки подключения к Redis
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// Database - имя базы в ключе, разделяет схемы разных баз на одном Redis
	Database string `yaml:"database,omitempty"`

	// TTL - время жизни записи, 0 - без ограничения
	TTL time.Duration `yaml:"ttl,omitempty"`

	// Prefix - префикс ключей, пусто - DefaultPrefix
	Prefix string `yaml:"prefix,omitempty"`
}

// payload - то, что хранится под ключом
type payload struct {
	Table    string              `json:"table"`
	StoredAt time.Time           `json:"stored_at"`
	Columns  []schema.ColumnMeta `json:"columns"`
}

// RedisStore реализует schema.Store поверх Redis
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	database string
	ttl      time.Duration
}

// NewRedisStore создает хранилище с собственным клиентом
func NewRedisStore(cfg Config) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg)
}

// NewRedisStoreWithClient создает хранилище поверх готового клиента
func NewRedisStoreWithClient(client redis.UniversalClient, cfg Config) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix, database: cfg.Database, ttl: cfg.TTL}
}

// Key возвращает ключ Redis для таблицы
func (s *RedisStore) Key(table string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, s.database, strings.ToLower(table))
}

// Get читает колонки таблицы. Отсутствие ключа - промах без ошибки.
func (s *RedisStore) Get(ctx context.Context, table string) ([]schema.ColumnMeta, bool, error) {
	data, err := s.client.Get(ctx, s.Key(table)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET failed: %w", err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal schema of %s: %w", table, err)
	}
	if len(p.Columns) == 0 {
		return nil, false, nil
	}
	return p.Columns, true, nil
}

// Put сохраняет колонки таблицы с TTL
func (s *RedisStore) Put(ctx context.Context, table string, cols []schema.ColumnMeta) error {
	data, err := json.Marshal(payload{Table: table, StoredAt: time.Now().UTC(), Columns: cols})
	if err != nil {
		return fmt.Errorf("failed to marshal schema of %s: %w", table, err)
	}
	if err := s.client.Set(ctx, s.Key(table), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

// Invalidate удаляет сохраненную схему
func (s *RedisStore) Invalidate(ctx context.Context, table string) error {
	if err := s.client.Del(ctx, s.Key(table)).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis
func (s *RedisStore) Close() error {
	return s.client.Close()
}
