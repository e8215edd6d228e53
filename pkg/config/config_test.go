package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ruslano69/tablekit/pkg/retry"
	"github.com/ruslano69/tablekit/pkg/validation"
)

const sampleYAML = `
database:
  type: sqlite
  database: shop.db
  max_conns: 4
tables:
  - name: tickets
    primary_key: id
    descriptor: title
    validate:
      - field: title
        type: required
      - field: priority
        type: range
        param: 1-5
        on: update
schema_store:
  enabled: true
  address: localhost:6379
  ttl: 10m
retry:
  enabled: true
  max_attempts: 5
  initial_delay: 200ms
  max_delay: 2s
  backoff: linear
logging:
  level: debug
  format: json
strict_fragments: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Database.Type != "sqlite" || cfg.Database.MaxConns != 4 {
		t.Errorf("Unexpected database config: %+v", cfg.Database)
	}
	if !cfg.StrictFragments {
		t.Error("Expected strict_fragments")
	}
	if cfg.SchemaStore.TTL != 10*time.Minute {
		t.Errorf("TTL = %v, want 10m", cfg.SchemaStore.TTL)
	}
	if cfg.Retry.InitialDelay != 200*time.Millisecond || cfg.Retry.BackoffStrategy != retry.BackoffLinear {
		t.Errorf("Unexpected retry config: %+v", cfg.Retry)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}

	table, ok := cfg.Table("TICKETS")
	if !ok {
		t.Fatal("Table lookup must be case-insensitive")
	}
	if table.Descriptor != "title" || len(table.Validate) != 2 {
		t.Errorf("Unexpected table config: %+v", table)
	}
	if table.Validate[1].On != validation.OpUpdate {
		t.Errorf("Expected rule restricted to update, got %q", table.Validate[1].On)
	}
	rules, err := table.RuleSet()
	if err != nil || rules.Len() != 2 {
		t.Errorf("RuleSet: %v, %v", rules, err)
	}

	if _, ok := cfg.Table("orders"); ok {
		t.Error("Expected missing table")
	}

	ac := cfg.AdapterConfig()
	if ac.Type != "sqlite" || ac.DSN != "shop.db" || ac.MaxConns != 4 {
		t.Errorf("Unexpected adapter config: %+v", ac)
	}
	if ac.Retry == nil || ac.Retry.MaxAttempts != 5 {
		t.Errorf("Expected retry in adapter config: %+v", ac.Retry)
	}

	if sc := cfg.StoreConfig(); sc.Database != "shop.db" || sc.Address != "localhost:6379" {
		t.Errorf("Unexpected store config: %+v", sc)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"no type", "database:\n  database: x.db\n", "database.type is required"},
		{"bad type", "database:\n  type: oracle\n  database: x\n", "unsupported database.type"},
		{"no database", "database:\n  type: sqlite\n", "database.database is required"},
		{"no primary key", "database:\n  type: sqlite\n  database: x.db\ntables:\n  - name: t\n", "primary_key is required"},
		{"duplicate table", "database:\n  type: sqlite\n  database: x.db\ntables:\n  - {name: t, primary_key: id}\n  - {name: T, primary_key: id}\n", "configured twice"},
		{"bad rule", "database:\n  type: sqlite\n  database: x.db\ntables:\n  - name: t\n    primary_key: id\n    validate:\n      - {field: a, type: range, param: abc}\n", "table t"},
		{"store without address", "database:\n  type: sqlite\n  database: x.db\nschema_store:\n  enabled: true\n", "schema_store.address"},
		{"bad retry", "database:\n  type: sqlite\n  database: x.db\nretry:\n  enabled: true\n  backoff: random\n", "retry"},
		{"bad yaml", "database: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tablekit.yaml")

	for _, dbType := range []string{"sqlite", "postgres", "mssql", "mysql"} {
		t.Run(dbType, func(t *testing.T) {
			sample := CreateSampleConfig(dbType)
			if err := SaveConfig(path, sample); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}

			loaded, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if loaded.Database != sample.Database {
				t.Errorf("Database mismatch:\n%+v\n%+v", loaded.Database, sample.Database)
			}
			if loaded.Retry.InitialDelay != time.Second || !loaded.Retry.Enabled {
				t.Errorf("Retry not preserved: %+v", loaded.Retry)
			}
			if len(loaded.Tables) != 1 || len(loaded.Tables[0].Validate) != 3 {
				t.Errorf("Tables not preserved: %+v", loaded.Tables)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestBuildDSN(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		db := DatabaseConfig{Type: "sqlite", Database: "app.db"}
		if got := db.BuildDSN(); got != "app.db" {
			t.Errorf("BuildDSN() = %s", got)
		}
	})

	t.Run("postgres", func(t *testing.T) {
		db := DatabaseConfig{Type: "postgresql", Host: "db", Port: 5432, Database: "shop", User: "app", Password: "p@ss"}
		u, err := url.Parse(db.BuildDSN())
		if err != nil {
			t.Fatalf("Invalid URL: %v", err)
		}
		pass, _ := u.User.Password()
		if u.Scheme != "postgres" || u.Host != "db:5432" || u.Path != "/shop" || pass != "p@ss" {
			t.Errorf("Unexpected DSN: %s", u)
		}
		if u.Query().Get("sslmode") != "disable" || u.Query().Get("search_path") != "public" {
			t.Errorf("Unexpected query: %s", u.RawQuery)
		}
		if db.AdapterType() != "postgres" {
			t.Errorf("AdapterType() = %s", db.AdapterType())
		}
	})

	t.Run("mssql", func(t *testing.T) {
		db := DatabaseConfig{Type: "mssql", Host: "sql", Port: 1433, Database: "shop", User: "sa", Password: "x"}
		u, err := url.Parse(db.BuildDSN())
		if err != nil {
			t.Fatalf("Invalid URL: %v", err)
		}
		if u.Scheme != "sqlserver" || u.User.Username() != "sa" || u.Query().Get("database") != "shop" {
			t.Errorf("Unexpected DSN: %s", u)
		}

		db.WindowsAuth = true
		u, _ = url.Parse(db.BuildDSN())
		if u.User != nil || u.Query().Get("integrated security") != "SSPI" {
			t.Errorf("Unexpected Windows auth DSN: %s", u)
		}
	})

	t.Run("mysql", func(t *testing.T) {
		db := DatabaseConfig{Type: "mysql", Host: "my", Port: 3306, Database: "shop", User: "root", Password: "pw"}
		mc, err := mysql.ParseDSN(db.BuildDSN())
		if err != nil {
			t.Fatalf("Invalid DSN: %v", err)
		}
		if mc.Addr != "my:3306" || mc.DBName != "shop" || mc.User != "root" || mc.Passwd != "pw" || !mc.ParseTime {
			t.Errorf("Unexpected DSN config: %+v", mc)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		db := DatabaseConfig{Type: "oracle"}
		if db.BuildDSN() != "" {
			t.Error("Expected empty DSN for unknown type")
		}
	})
}
