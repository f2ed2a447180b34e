package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.handle.EnsureMigrated(ctx); err != nil {
		return err
	}

	if err := s.handle.Database().Validate(ctx); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	schemaVersion, err := s.handle.Database().SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	slog.Info("store migrated", "location", s.handle.Location(), "schema_version", schemaVersion)
	return nil
}
