package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore/config"
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop all metadata tables",
	Long: `Drop every metadata table and the migration ledger from the store.
All experiments, tags and runs are permanently deleted. Run init or migrate
afterwards to recreate an empty schema.`,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(dropCmd)
}

func runDrop(cmd *cobra.Command, args []string) error {
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

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm(fmt.Sprintf("Drop all tables in %s", s.handle.Descriptor().Redacted()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := s.handle.Database().DropTables(ctx); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	slog.Info("tables dropped", "location", s.handle.Location())
	return nil
}
