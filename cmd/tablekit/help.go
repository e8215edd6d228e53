package main

import (
	"fmt"
	"io"
)

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "tablekit version %s\n", version)
	fmt.Fprintln(w, "Convention-based table access for SQLite, PostgreSQL, MS SQL and MySQL")
}

// PrintHelp prints comprehensive help information
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "tablekit - convention-based table access")
	fmt.Fprintf(w, "Version: %s\n\n", version)

	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  tablekit --table <name> [command] [options]")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "    --list                     List all tables in database")
	fmt.Fprintln(w, "    --schema                   Show table columns")
	fmt.Fprintln(w, "    --prototype                Show a new record with column defaults")
	fmt.Fprintln(w, "    --all                      Select records (--where --orderby --limit --columns --join)")
	fmt.Fprintln(w, "    --paged                    Select one page (--page --page-size --where --orderby)")
	fmt.Fprintln(w, "    --call <op>                Dynamic call: FindByStatus, count, sum, FirstByEmail, Last")
	fmt.Fprintln(w, "    --count                    Count records (--where)")
	fmt.Fprintln(w, "    --keyvalues                Primary key / descriptor pairs (--orderby)")
	fmt.Fprintln(w, "    --insert <a=1,b=2>         Insert a record, prints it with the generated key")
	fmt.Fprintln(w, "    --delete <key>             Delete a record by primary key")
	fmt.Fprintln(w, "    --from-xlsx <file>         Insert or update records from XLSX (--sheet)")
	fmt.Fprintln(w, "    --purge-audit <duration>   Delete audit table entries older than duration (720h)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "    --config <file>            Configuration file (default: config.yaml)")
	fmt.Fprintln(w, "    --table <name>             Table name")
	fmt.Fprintln(w, "    --pk <column>              Primary key for tables not in config (default: id)")
	fmt.Fprintln(w, "    --descriptor <column>      Descriptor for tables not in config")
	fmt.Fprintln(w, "    --arg <name=value>         Named argument for --call (repeatable)")
	fmt.Fprintln(w, "    --xlsx <file>              Write --all result to XLSX")
	fmt.Fprintln(w, "    --create-config <type>     Create sample config: sqlite, postgres, mssql, mysql")
	fmt.Fprintln(w, "    --version                  Show version")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  tablekit --create-config sqlite")
	fmt.Fprintln(w, "  tablekit --table tickets --all --where \"status = 'open'\" --orderby created --limit 10")
	fmt.Fprintln(w, "  tablekit --table tickets --call FindByStatus --arg status=open --arg orderby=created")
	fmt.Fprintln(w, "  tablekit --table tickets --paged --page 2 --page-size 50")
	fmt.Fprintln(w, "  tablekit --table tickets --insert \"title=Printer jam,priority=2\"")
	fmt.Fprintln(w, "  tablekit --table tickets --all --xlsx tickets.xlsx")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Output is JSON on stdout, logs go to stderr.")
}
