package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // MS SQL Server driver

	"github.com/ruslano69/tablekit/pkg/adapters"
	"github.com/ruslano69/tablekit/pkg/adapters/base"
	"github.com/ruslano69/tablekit/pkg/core/dialect"
)

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

// Adapter implements the adapters.Adapter interface for Microsoft SQL Server.
type Adapter struct {
	*base.SQLDriver
	db     *sql.DB
	config adapters.Config

	// Version information
	serverVersion    int    // Major version: 11=2012, 13=2016, 14=2017, 15=2019, 16=2022
	serverVersionStr string // Full version string
	compatLevel      int    // Database compatibility level: 110=2012, 130=2016, etc.
}

// Compatibility levels
const (
	CompatSQL2012 = 110 // SQL Server 2012
	CompatSQL2014 = 120 // SQL Server 2014
	CompatSQL2016 = 130 // SQL Server 2016
	CompatSQL2017 = 140 // SQL Server 2017
	CompatSQL2019 = 150 // SQL Server 2019
	CompatSQL2022 = 160 // SQL Server 2022
)

func init() {
	// Register MS SQL Server adapter in factory
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Connect implements adapters.Adapter interface.
// Connects to MS SQL Server and detects server version.
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.config = cfg

	if err := a.detectCompatibility(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to detect compatibility: %w", err)
	}

	d := dialect.SQLServer
	if cfg.Schema != "" {
		d.DefaultSchema = cfg.Schema
	}
	a.SQLDriver = base.NewSQLDriver(db, d, base.NewTypeConverter(AdapterType))
	if cfg.Logger != nil {
		a.SQLDriver.SetLogger(*cfg.Logger)
	}

	return nil
}

// detectCompatibility detects SQL Server version and database compatibility level.
func (a *Adapter) detectCompatibility(ctx context.Context) error {
	var version string
	err := a.db.QueryRowContext(ctx, "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get server version: %w", err)
	}

	a.serverVersionStr = version
	a.serverVersion = parseServerVersion(version)

	err = a.db.QueryRowContext(ctx, `
		SELECT compatibility_level
		FROM sys.databases
		WHERE name = DB_NAME()
	`).Scan(&a.compatLevel)
	if err != nil {
		return fmt.Errorf("failed to get compatibility level: %w", err)
	}

	return nil
}

// parseServerVersion parses SQL Server version string to major version number.
// Examples:
//   - "11.0.2100.60" → 11 (SQL Server 2012)
//   - "15.0.2000.5"  → 15 (SQL Server 2019)
func parseServerVersion(version string) int {
	major, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return n
}

// serverVersionName returns human-readable server version name.
func serverVersionName(major int) string {
	switch major {
	case 11:
		return "SQL Server 2012"
	case 12:
		return "SQL Server 2014"
	case 13:
		return "SQL Server 2016"
	case 14:
		return "SQL Server 2017"
	case 15:
		return "SQL Server 2019"
	case 16:
		return "SQL Server 2022"
	default:
		return fmt.Sprintf("SQL Server (version %d)", major)
	}
}

// SupportsOffsetFetch returns true if OFFSET/FETCH is available (SQL Server 2012+).
func (a *Adapter) SupportsOffsetFetch() bool {
	return a.compatLevel >= CompatSQL2012
}

// SupportsStringAgg returns true if STRING_AGG is available (SQL Server 2017+).
func (a *Adapter) SupportsStringAgg() bool {
	return a.compatLevel >= CompatSQL2017
}

// Close closes the database connection.
func (a *Adapter) Close(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// GetDatabaseType returns the adapter type.
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// GetDatabaseVersion returns the SQL Server version string.
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return fmt.Sprintf("%s %s (compatibility level %d)",
		serverVersionName(a.serverVersion), a.serverVersionStr, a.compatLevel), nil
}

func (a *Adapter) schema() string {
	if a.config.Schema != "" {
		return a.config.Schema
	}
	return dialect.SQLServer.DefaultSchema
}

// GetTableNames returns all table names in the current schema.
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	return base.TableNames(ctx, a.db, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`, a.schema())
}

// TableExists checks if a table exists in the current schema.
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	schemaName, table := dialect.SplitTable(tableName)
	if schemaName == "" {
		schemaName = a.schema()
	}

	var count int
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1
		  AND TABLE_NAME = @p2
		  AND TABLE_TYPE = 'BASE TABLE'
	`, schemaName, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return count > 0, nil
}
