package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablekit/pkg/config"
	"github.com/ruslano69/tablekit/pkg/logging"

	// Регистрация адаптеров в фабрике
	_ "github.com/ruslano69/tablekit/pkg/adapters/mssql"
	_ "github.com/ruslano69/tablekit/pkg/adapters/mysql"
	_ "github.com/ruslano69/tablekit/pkg/adapters/postgres"
	_ "github.com/ruslano69/tablekit/pkg/adapters/sqlite"
)

// errNoCommand - не указана ни одна команда
var errNoCommand = errors.New("no command specified")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		fatal("%v", err)
	}
}

// run разбирает флаги и выполняет одну команду. Результат пишется в stdout как JSON.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags, err := ParseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// Handle version
	if flags.Version {
		PrintVersion(stdout)
		return nil
	}

	// Handle help
	if flags.Help {
		PrintHelp(stdout)
		return nil
	}

	// Handle config creation
	if flags.CreateConfig != "" {
		return createConfigTemplate(flags.CreateConfig, flags.Config, stdout)
	}

	if !flags.commandWasSpecified() {
		PrintHelp(stderr)
		return errNoCommand
	}

	// Load configuration
	cfg, err := config.LoadConfig(flags.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		return err
	}
	log.Logger = logger

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	result, err := execute(ctx, a, flags)
	if err != nil {
		return err
	}
	return writeJSON(stdout, result)
}

// createConfigTemplate creates a sample configuration file
func createConfigTemplate(dbType, path string, w io.Writer) error {
	switch dbType {
	case "sqlite", "postgres", "mssql", "mysql":
	default:
		return fmt.Errorf("unknown database type %q (sqlite, postgres, mssql, mysql)", dbType)
	}

	if err := config.SaveConfig(path, config.CreateSampleConfig(dbType)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(w, "✓ Created sample %s config: %s\n", dbType, path)
	fmt.Fprintln(w, "Edit the file with your database credentials and run:")
	fmt.Fprintf(w, "  tablekit --list --config %s\n", path)
	return nil
}

// fatal prints error and exits
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
