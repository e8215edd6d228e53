// Package config загружает YAML конфигурацию tablekit: подключение к БД,
// привязки таблиц с правилами валидации, хранилище схем, аудит, повторы
// подключения и логирование.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tablekit/pkg/adapters"
	"github.com/ruslano69/tablekit/pkg/logging"
	"github.com/ruslano69/tablekit/pkg/retry"
	"github.com/ruslano69/tablekit/pkg/schemastore"
	"github.com/ruslano69/tablekit/pkg/validation"
)

// Config represents the main configuration structure
type Config struct {
	Database        DatabaseConfig     `yaml:"database"`
	Tables          []TableConfig      `yaml:"tables,omitempty"`
	SchemaStore     schemastore.Config `yaml:"schema_store,omitempty"`
	Audit           AuditConfig        `yaml:"audit,omitempty"`
	Retry           retry.Config       `yaml:"retry,omitempty"`
	Logging         logging.Config     `yaml:"logging,omitempty"`
	StrictFragments bool               `yaml:"strict_fragments,omitempty"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Type        string `yaml:"type"`                   // sqlite, postgres, mssql, mysql
	Host        string `yaml:"host,omitempty"`         // For network databases
	Port        int    `yaml:"port,omitempty"`         // Database port
	Database    string `yaml:"database"`               // Database name or file path
	User        string `yaml:"user,omitempty"`         // Username
	Password    string `yaml:"password,omitempty"`     // Password
	Schema      string `yaml:"schema,omitempty"`       // PostgreSQL schema (default: public)
	WindowsAuth bool   `yaml:"windows_auth,omitempty"` // MS SQL Windows authentication
	SSLMode     string `yaml:"sslmode,omitempty"`      // PostgreSQL SSL mode
	MaxConns    int    `yaml:"max_conns,omitempty"`    // Pool size, 0 - driver default
	Timeout     int    `yaml:"timeout,omitempty"`      // Connect timeout in seconds
}

// TableConfig - привязка модели к таблице
type TableConfig struct {
	Name       string            `yaml:"name"`
	PrimaryKey string            `yaml:"primary_key"`
	Descriptor string            `yaml:"descriptor,omitempty"`
	Validate   []validation.Rule `yaml:"validate,omitempty"`
}

// AuditConfig for audit logging settings
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"` // minimal, standard, full
	File       string `yaml:"file,omitempty"`
	MaxSize    int    `yaml:"max_size_mb,omitempty"` // Max file size in MB
	MaxBackups int    `yaml:"max_backups,omitempty"`
	Console    bool   `yaml:"console,omitempty"` // Log entries through zerolog
	Table      string `yaml:"table,omitempty"`   // Write entries to this database table
}

// LoadConfig loads configuration from YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse разбирает и проверяет YAML конфигурацию
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to YAML file
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate проверяет обязательные поля и правила валидации таблиц
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "":
		return fmt.Errorf("database.type is required")
	case "sqlite", "postgres", "postgresql", "mssql", "sqlserver", "mysql":
	default:
		return fmt.Errorf("unsupported database.type: %s", c.Database.Type)
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	seen := make(map[string]bool, len(c.Tables))
	for i, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("tables[%d]: name is required", i)
		}
		if t.PrimaryKey == "" {
			return fmt.Errorf("table %s: primary_key is required", t.Name)
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return fmt.Errorf("table %s is configured twice", t.Name)
		}
		seen[key] = true
		if _, err := t.RuleSet(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}

	if c.SchemaStore.Enabled && c.SchemaStore.Address == "" {
		return fmt.Errorf("schema_store.address is required when enabled")
	}

	if c.Retry.Enabled {
		rc := c.Retry
		if err := rc.Validate(); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	return nil
}

// Table ищет привязку таблицы без учета регистра
func (c *Config) Table(name string) (TableConfig, bool) {
	for _, t := range c.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return TableConfig{}, false
}

// RuleSet компилирует правила валидации таблицы. Без правил возвращает nil.
func (t TableConfig) RuleSet() (*validation.RuleSet, error) {
	if len(t.Validate) == 0 {
		return nil, nil
	}
	return validation.Compile(t.Validate)
}

// AdapterConfig собирает конфигурацию подключения для adapters.New
func (c *Config) AdapterConfig() adapters.Config {
	cfg := adapters.Config{
		Type:     c.Database.AdapterType(),
		DSN:      c.Database.BuildDSN(),
		Schema:   c.Database.Schema,
		MaxConns: c.Database.MaxConns,
		Timeout:  time.Duration(c.Database.Timeout) * time.Second,
	}
	if c.Retry.Enabled {
		rc := c.Retry
		cfg.Retry = &rc
	}
	return cfg
}

// StoreConfig возвращает настройки хранилища схем. Имя базы в ключе по умолчанию - database.database.
func (c *Config) StoreConfig() schemastore.Config {
	sc := c.SchemaStore
	if sc.Database == "" {
		sc.Database = c.Database.Database
	}
	return sc
}

// AdapterType приводит синонимы типа СУБД к имени зарегистрированного адаптера
func (c *DatabaseConfig) AdapterType() string {
	switch c.Type {
	case "postgresql":
		return "postgres"
	case "sqlserver":
		return "mssql"
	default:
		return c.Type
	}
}

// CreateSampleConfig creates sample configuration for different database types
func CreateSampleConfig(dbType string) *Config {
	config := &Config{
		Database: DatabaseConfig{
			Type: dbType,
		},
		Tables: []TableConfig{
			{
				Name:       "customers",
				PrimaryKey: "id",
				Descriptor: "name",
				Validate: []validation.Rule{
					{Field: "name", Type: validation.RuleRequired},
					{Field: "email", Type: validation.RuleEmail},
					{Field: "status", Type: validation.RuleEnum, Param: "active,inactive"},
				},
			},
		},
		Retry: retry.EnableRetry(3, time.Second),
		Audit: AuditConfig{
			Enabled:    true,
			Level:      "standard",
			File:       "audit.log",
			MaxSize:    100,
			MaxBackups: 5,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}

	switch dbType {
	case "postgres", "postgresql":
		config.Database.Host = "localhost"
		config.Database.Port = 5432
		config.Database.Database = "mydb"
		config.Database.User = "postgres"
		config.Database.Password = "password"
		config.Database.Schema = "public"
		config.Database.SSLMode = "disable"

	case "mssql", "sqlserver":
		config.Database.Host = "localhost"
		config.Database.Port = 1433
		config.Database.Database = "mydb"
		config.Database.User = "sa"
		config.Database.Password = "YourPassword123"
		config.Database.WindowsAuth = false

	case "sqlite":
		config.Database.Database = "database.db"

	case "mysql":
		config.Database.Host = "localhost"
		config.Database.Port = 3306
		config.Database.Database = "mydb"
		config.Database.User = "root"
		config.Database.Password = "password"
	}

	return config
}

// BuildDSN constructs database connection string from config
func (c *DatabaseConfig) BuildDSN() string {
	switch c.Type {
	case "postgres", "postgresql":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		schema := c.Schema
		if schema == "" {
			schema = "public"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     hostPort(c.Host, c.Port),
			Path:     "/" + c.Database,
			RawQuery: url.Values{"sslmode": {sslMode}, "search_path": {schema}}.Encode(),
		}
		return u.String()

	case "mssql", "sqlserver":
		q := url.Values{"database": {c.Database}}
		u := url.URL{Scheme: "sqlserver", Host: hostPort(c.Host, c.Port)}
		if c.WindowsAuth {
			q.Set("integrated security", "SSPI")
		} else {
			u.User = url.UserPassword(c.User, c.Password)
		}
		u.RawQuery = q.Encode()
		return u.String()

	case "sqlite":
		return c.Database

	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = hostPort(c.Host, c.Port)
		mc.DBName = c.Database
		mc.ParseTime = true
		return mc.FormatDSN()

	default:
		return ""
	}
}

func hostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}
