package main

import (
	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/config"
)

var experimentsCmd = &cobra.Command{
	Use:     "experiments",
	Aliases: []string{"exp"},
	Short:   "List and create experiments",
}

var experimentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments",
	Args:  cobra.NoArgs,
	RunE:  runExperimentsList,
}

var experimentsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentsCreate,
}

func init() {
	experimentsCreateCmd.Flags().StringP("description", "d", "", "experiment description")

	experimentsCmd.AddCommand(experimentsListCmd)
	experimentsCmd.AddCommand(experimentsCreateCmd)
	rootCmd.AddCommand(experimentsCmd)
}

func runExperimentsList(cmd *cobra.Command, args []string) error {
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

	experiments, err := cat.Experiments(ctx)
	if err != nil {
		return err
	}

	return formatter(cmd).FormatExperiments(cmd.OutOrStdout(), experiments)
}

func runExperimentsCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	cat, s, err := openCatalog(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	description, _ := cmd.Flags().GetString("description")

	e, err := cat.CreateExperiment(ctx, runstore.NewExperiment{
		Name:        args[0],
		Description: description,
	})
	if err != nil {
		return err
	}

	return formatter(cmd).FormatExperiment(cmd.OutOrStdout(), e)
}
