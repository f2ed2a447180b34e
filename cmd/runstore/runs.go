package main

import (
	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/config"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

func init() {
	runsListCmd.Flags().StringP("experiment", "e", "", "only runs of this experiment")
	runsListCmd.Flags().Bool("archived", false, "include archived runs")
	runsListCmd.Flags().IntP("limit", "n", 100, "maximum number of runs")

	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	cat, s, err := openCatalog(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	q := runstore.RunQuery{}
	q.IncludeArchived, _ = cmd.Flags().GetBool("archived")
	q.Limit, _ = cmd.Flags().GetInt("limit")

	if name, _ := cmd.Flags().GetString("experiment"); name != "" {
		e, err := cat.Experiment(ctx, name)
		if err != nil {
			return err
		}
		q.ExperimentID = &e.ID
	}

	runs, err := cat.Runs(ctx, q)
	if err != nil {
		return err
	}

	return formatter(cmd).FormatRuns(cmd.OutOrStdout(), runs)
}
