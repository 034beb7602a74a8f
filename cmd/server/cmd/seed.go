package cmd

import (
	"fmt"

	"github.com/Togather-Foundation/confdir/internal/config"
	"github.com/Togather-Foundation/confdir/internal/seed"
	"github.com/spf13/cobra"
)

type seedOptions struct {
	file    string
	ifEmpty bool
}

func newSeedCmd(root *rootOptions) *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load conferences and events from a YAML dataset",
		Long: `Create the conferences and events of a YAML dataset through the regular
validation rules. Listings whose id already exists are skipped, so the command
can be rerun safely. Without --file the built-in demo dataset is used.

Examples:
  # Load the demo dataset
  server seed

  # Load a custom dataset only into an empty directory
  server seed --file ./listings.yaml --if-empty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := config.NewLogger(cfg.Logging)

			ds, err := loadDataset(opts.file)
			if err != nil {
				return err
			}

			dir, err := openDirectory(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer dir.Close()

			seeder := seed.NewSeeder(dir.conferences, dir.events, logger)
			var result seed.Result
			if opts.ifEmpty {
				var applied bool
				result, applied, err = seeder.ApplyIfEmpty(cmd.Context(), ds)
				if err == nil && !applied {
					fmt.Fprintln(cmd.OutOrStdout(), "directory not empty, nothing seeded")
					return nil
				}
			} else {
				result, err = seeder.Apply(cmd.Context(), ds)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d conference(s), %d event(s), skipped %d\n",
				result.Conferences, result.Events, result.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "YAML dataset path (default: built-in demo dataset)")
	cmd.Flags().BoolVar(&opts.ifEmpty, "if-empty", false, "seed only when the directory has no conferences")
	return cmd
}
