package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore/config"
	"github.com/sagarc03/runstore/output"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "runstore",
	Short:   "Experiment and run metadata store",
	Long: `runstore keeps experiment, tag and run metadata in an embedded SQLite
store or a PostgreSQL database, and serves it over a small JSON API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, later files override earlier ones (default: ./runstore.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: RUNSTORE_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("location", "", "store location: directory for sqlite, database name for postgres (env: RUNSTORE_DATABASE_LOCATION)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: RUNSTORE_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress non-essential output")
}

func formatter(cmd *cobra.Command) output.Formatter {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	return output.NewFormatter(jsonOutput, quiet)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
