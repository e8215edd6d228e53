package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Flags holds all command-line flags
type Flags struct {
	// Commands
	List      bool
	Schema    bool
	Prototype bool
	All       bool
	Paged     bool
	Call      string
	Count     bool
	KeyValues bool
	Insert    string
	Delete    string
	FromXLSX  string
	// PurgeAudit - возраст записей аудита, которые удаляются из таблицы аудита
	PurgeAudit time.Duration

	// Query options
	Where    string
	OrderBy  string
	Limit    int
	Columns  string
	Join     string
	Page     int
	PageSize int
	Args     argList

	// Options
	Config       string
	Table        string
	PrimaryKey   string
	Descriptor   string
	XLSX         string
	Sheet        string
	CreateConfig string

	// Misc
	Version bool
	Help    bool
}

// argList - повторяемый флаг --arg name=value
type argList []string

func (a *argList) String() string {
	return strings.Join(*a, ",")
}

func (a *argList) Set(v string) error {
	if _, _, ok := strings.Cut(v, "="); !ok {
		return fmt.Errorf("argument must be name=value, got %q", v)
	}
	*a = append(*a, v)
	return nil
}

// ParseFlags defines and parses all command-line flags
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("tablekit", flag.ContinueOnError)
	fs.SetOutput(output)

	// Commands
	fs.BoolVar(&f.List, "list", false, "List all tables in database")
	fs.BoolVar(&f.Schema, "schema", false, "Show columns of --table")
	fs.BoolVar(&f.Prototype, "prototype", false, "Show a new record of --table filled with column defaults")
	fs.BoolVar(&f.All, "all", false, "Select records of --table")
	fs.BoolVar(&f.Paged, "paged", false, "Select one page of --table")
	fs.StringVar(&f.Call, "call", "", "Dynamic call by naming convention (e.g. FindByStatus, count, Last)")
	fs.BoolVar(&f.Count, "count", false, "Count records of --table (honors --where)")
	fs.BoolVar(&f.KeyValues, "keyvalues", false, "List primary key / descriptor pairs")
	fs.StringVar(&f.Insert, "insert", "", "Insert a record: name=value,name=value")
	fs.StringVar(&f.Delete, "delete", "", "Delete a record by primary key value")
	fs.StringVar(&f.FromXLSX, "from-xlsx", "", "Save records from XLSX file into --table")
	fs.DurationVar(&f.PurgeAudit, "purge-audit", 0, "Delete audit table entries older than DURATION (e.g. 720h)")

	// Query options
	fs.StringVar(&f.Where, "where", "", "WHERE fragment (e.g. \"status = 'open'\")")
	fs.StringVar(&f.OrderBy, "orderby", "", "ORDER BY fragment")
	fs.IntVar(&f.Limit, "limit", 0, "Return at most N rows")
	fs.StringVar(&f.Columns, "columns", "", "Column list (default: *)")
	fs.StringVar(&f.Join, "join", "", "JOIN fragment")
	fs.IntVar(&f.Page, "page", 1, "Page number for --paged")
	fs.IntVar(&f.PageSize, "page-size", 0, "Page size for --paged (default: 20)")
	fs.Var(&f.Args, "arg", "Named argument for --call: name=value (repeatable)")

	// Options
	fs.StringVar(&f.Config, "config", "config.yaml", "Configuration file path")
	fs.StringVar(&f.Table, "table", "", "Table name")
	fs.StringVar(&f.PrimaryKey, "pk", "id", "Primary key column for tables not listed in config")
	fs.StringVar(&f.Descriptor, "descriptor", "", "Descriptor column for tables not listed in config")
	fs.StringVar(&f.XLSX, "xlsx", "", "Write --all result to XLSX file instead of stdout")
	fs.StringVar(&f.Sheet, "sheet", "", "Excel sheet name (default: table name)")
	fs.StringVar(&f.CreateConfig, "create-config", "", "Create sample config.yaml: sqlite, postgres, mssql, mysql")

	// Misc
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Help, "help", false, "Show detailed help with examples")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// commandWasSpecified checks if any command was specified
func (f *Flags) commandWasSpecified() bool {
	return f.List || f.Schema || f.Prototype || f.All || f.Paged ||
		f.Call != "" || f.Count || f.KeyValues ||
		f.Insert != "" || f.Delete != "" || f.FromXLSX != "" || f.PurgeAudit > 0
}
