package cmd

import (
	"errors"
	"fmt"

	"github.com/Togather-Foundation/confdir/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var errNoDatabaseURL = errors.New("DATABASE_URL is not set (or pass --database-url)")

type migrateOptions struct {
	databaseURL    string
	migrationsPath string
	steps          int
}

func newMigrateCmd(root *rootOptions) *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply or roll back schema migrations with golang-migrate.

Examples:
  # Apply all pending migrations
  server migrate up

  # Roll back the most recent migration
  server migrate down --steps 1

  # Show the applied schema version
  server migrate version`,
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "database URL (default: DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.migrationsPath, "path", postgres.DefaultMigrationsPath, "migrations directory")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := opts.resolveURL(root)
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(url, opts.migrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			url, err := opts.resolveURL(root)
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(url, opts.migrationsPath, opts.steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", opts.steps)
			return nil
		},
	}
	down.Flags().IntVar(&opts.steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := opts.resolveURL(root)
			if err != nil {
				return err
			}
			v, dirty, err := postgres.MigrationVersion(url, opts.migrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty:   %t\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func (o *migrateOptions) resolveURL(root *rootOptions) (string, error) {
	if o.databaseURL != "" {
		return o.databaseURL, nil
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", errNoDatabaseURL
	}
	return cfg.Database.URL, nil
}
