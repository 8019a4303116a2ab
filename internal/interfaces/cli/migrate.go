package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrator(cmd *cobra.Command) (Migrator, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	backend, err := cliCtx.Backend(cmd.Context())
	if err != nil {
		return nil, err
	}
	return backend.Migrator(), nil
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.RunMigrations(); err != nil {
				return err
			}
			return printMigrationState(cmd, m)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.RollbackMigrations(steps); err != nil {
				return err
			}
			return printMigrationState(cmd, m)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			return printMigrationState(cmd, m)
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func printMigrationState(cmd *cobra.Command, m Migrator) error {
	state, err := m.MigrationStatus()
	if err != nil {
		return err
	}
	cliCtx, err := GetCLIContext(cmd)
	if err == nil && cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, state)
	}
	msg := fmt.Sprintf("schema version %d", state.Version)
	if state.Dirty {
		msg += " (dirty)"
	}
	PrintSuccess(cmd, msg)
	return nil
}

//Personal.AI order the ending
