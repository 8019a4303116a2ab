// internal/interfaces/cli/root.go
//
// Root of the docrev command tree.  Registers global flags, loads
// configuration and the logger before every command, and opens the storage
// backend lazily so offline commands (extract, compare) never touch a
// database.
//
// Dependencies:
//   Depends on: cobra, internal/config, application/revision,
//               application/ingestion, infrastructure/monitoring/logging
//   Depended by: cmd/docrev

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/DocRev-Intelligence/internal/application/ingestion"
	"github.com/turtacn/DocRev-Intelligence/internal/application/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/config"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ─────────────────────────────────────────────────────────────────────────────
// Backend
// ─────────────────────────────────────────────────────────────────────────────

// Migrator manages the database schema.
type Migrator interface {
	RunMigrations() error
	RollbackMigrations(steps int) error
	MigrationStatus() (postgres.MigrationState, error)
}

// Backend is the persistent side of the engine.
type Backend interface {
	Chains() revision.ChainService
	Ingestion() ingestion.Service
	Migrator() Migrator
	Close() error
}

// BackendFactory opens a Backend for cfg.
type BackendFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error)

// ─────────────────────────────────────────────────────────────────────────────
// Options and context
// ─────────────────────────────────────────────────────────────────────────────

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// CLIContext carries initialised dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	factory BackendFactory
	once    sync.Once
	backend Backend
	err     error
}

// Backend opens the backend on first use.
func (c *CLIContext) Backend(ctx context.Context) (Backend, error) {
	c.once.Do(func() {
		if c.factory == nil {
			c.err = errors.New(errors.ErrCodeServiceUnavailable, "no storage backend configured")
			return
		}
		c.backend, c.err = c.factory(ctx, c.Config, c.Logger)
	})
	return c.backend, c.err
}

func (c *CLIContext) close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

type cliContextKey struct{}

// ─────────────────────────────────────────────────────────────────────────────
// Root command
// ─────────────────────────────────────────────────────────────────────────────

// NewRootCommand builds the docrev command tree.  factory opens the
// database-backed services; it may be nil for offline use.
func NewRootCommand(factory BackendFactory) *cobra.Command {
	opts := &RootOptions{}
	var cliCtx *CLIContext

	cmd := &cobra.Command{
		Use:   "docrev",
		Short: "DocRev-Intelligence CLI: review comment intelligence for engineering drawings",
		Long: "docrev extracts reviewer comments from marked-up PDF drawings, links them\n" +
			"across successive revisions and scores the review risk of each revision chain.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cliCtx, err = initContext(opts, factory)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if cliCtx == nil {
				return nil
			}
			return cliCtx.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: DOCREV_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "output format (table, json)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "overall operation timeout")

	cmd.AddCommand(
		newExtractCmd(),
		newCompareCmd(),
		newChainCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return cmd
}

func initContext(opts *RootOptions, factory BackendFactory) (*CLIContext, error) {
	switch opts.OutputFormat {
	case "table", "json":
	default:
		return nil, errors.NewValidation("output format must be table or json").WithDetail(opts.OutputFormat)
	}

	cfg, err := config.LoadOrEnv(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}

	if opts.NoColor {
		color.NoColor = true
	}

	return &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Timeout:      opts.Timeout,
		factory:      factory,
	}, nil
}

// GetCLIContext extracts the CLIContext installed by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.NewValidation("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.NewValidation("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext returns the command context bounded by --timeout.
func commandContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	if cliCtx.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), cliCtx.Timeout)
}

// Execute runs the CLI and prints any error to stderr.
func Execute(factory BackendFactory) error {
	root := NewRootCommand(factory)
	if err := root.Execute(); err != nil {
		PrintError(root, err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Output helpers
// ─────────────────────────────────────────────────────────────────────────────

// tabular is implemented by results that render as a table.
type tabular interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult writes data as JSON or, for tabular data, as a table.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), data)
	}
	if t, ok := data.(tabular); ok {
		return renderTable(cmd.OutOrStdout(), t.TableHeaders(), t.TableRows())
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", data)
	return err
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}

// riskLabel colours a risk level for terminal output.
func riskLabel(level string) string {
	switch level {
	case "critical":
		return color.New(color.FgRed, color.Bold).Sprint("CRITICAL")
	case "high":
		return color.RedString("HIGH")
	case "medium":
		return color.YellowString("MEDIUM")
	case "low":
		return color.GreenString("LOW")
	default:
		return strings.ToUpper(level)
	}
}

// truncate shortens s to n runes for table cells.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

//Personal.AI order the ending
