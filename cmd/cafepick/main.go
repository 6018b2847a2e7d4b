// Command cafepick runs the café recommendation API and its data tooling.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/cafepick-api/internal/config"
	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cafepick",
		Short:         "Café discovery API for Taiwan.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newImportCommand(), newMigrateCommand())
	return root
}

// deps is what every subcommand needs before doing real work.
type deps struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	tables  *domain.Tables
}

func loadDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	tables := domain.DefaultTables()
	if cfg.TablesPath != "" {
		if tables, err = domain.LoadTablesFile(cfg.TablesPath); err != nil {
			return nil, fmt.Errorf("load tables: %w", err)
		}
		logger.Info("loaded tables override", "path", cfg.TablesPath)
	}

	return &deps{cfg: cfg, logger: logger, metrics: observability.NewMetrics(), tables: tables}, nil
}
