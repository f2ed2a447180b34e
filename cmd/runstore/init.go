package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore/config"
	"github.com/sagarc03/runstore/pool"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and migrate a store",
	Long: `Create the store at the configured location if it does not exist and
apply all schema migrations. For sqlite this creates the store directory,
for postgres it creates the database.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	reg := pool.NewRegistry(cfg.Backend())
	defer func() { _ = reg.Close() }()

	d, err := reg.ResolveURL(cfg.Database.Location)
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm(fmt.Sprintf("Initialize %s store at %s", d.Family, d.Redacted()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	h, err := reg.Init(ctx, cfg.Database.Location)
	if err != nil {
		return err
	}

	schemaVersion, err := h.Database().SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	slog.Info("store initialized", "location", h.Location(), "schema_version", schemaVersion)
	return nil
}
