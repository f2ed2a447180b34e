package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/config"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE:  runTagsList,
}

var tagsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsCreate,
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tag",
	Long:  `Delete a tag by id. The tag is removed from every run that carries it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsDelete,
}

func init() {
	tagsCreateCmd.Flags().String("color", "", "tag color as #rrggbb")
	tagsCreateCmd.Flags().StringP("description", "d", "", "tag description")

	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsCreateCmd)
	tagsCmd.AddCommand(tagsDeleteCmd)
	rootCmd.AddCommand(tagsCmd)
}

func runTagsList(cmd *cobra.Command, args []string) error {
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

	tags, err := cat.Tags(ctx)
	if err != nil {
		return err
	}

	return formatter(cmd).FormatTags(cmd.OutOrStdout(), tags)
}

func runTagsCreate(cmd *cobra.Command, args []string) error {
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

	color, _ := cmd.Flags().GetString("color")
	description, _ := cmd.Flags().GetString("description")

	t, err := cat.CreateTag(ctx, runstore.NewTag{
		Name:        args[0],
		Color:       color,
		Description: description,
	})
	if err != nil {
		return err
	}

	return formatter(cmd).FormatTag(cmd.OutOrStdout(), t)
}

func runTagsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid tag id %q: %w", args[0], runstore.ErrInvalidInput)
	}

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	cat, s, err := openCatalog(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := cat.DeleteTag(ctx, id); err != nil {
		return err
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %s\n", id)
	}
	return nil
}
