/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects", "p"},
	Short:   "Create, list and manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project with its five pipeline steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, err := a.CreateProject(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Created project %s\n\n", ui.Icon("✓", ui.StyleSuccess), ui.StyleSubtle.Render(p.ID))
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderSteps(p))
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects, most recently updated first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		projects, err := a.ListProjects(ctx)
		if err != nil {
			return err
		}
		if isJSON() {
			if projects == nil {
				projects = []store.Project{}
			}
			return printJSON(cmd.OutOrStdout(), projects)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderProjects(projects))
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show a project's steps and their status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, err := a.GetProject(ctx, args[0])
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderSteps(p))
		fmt.Fprintln(cmd.OutOrStdout(), ui.StyleSubtle.Render("id: "+p.ID))
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <project> <new name>",
	Short: "Rename a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, err := a.RenameProject(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Renamed to %q\n", ui.Icon("✓", ui.StyleSuccess), p.Name)
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete <project>",
	Aliases: []string{"rm"},
	Short:   "Delete a project and all of its steps",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, err := a.GetProject(ctx, args[0])
		if err != nil {
			return err
		}
		ok, err := confirmer(cmd)(ctx, fmt.Sprintf("Delete project %q and all of its steps?", p.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}

		deleted, err := a.DeleteProject(ctx, p.ID)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": p.ID, "deleted": deleted})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %q\n", ui.Icon("✓", ui.StyleSuccess), p.Name)
		return nil
	},
}

var projectRepairCmd = &cobra.Command{
	Use:   "repair <project>",
	Short: "Add any missing pipeline steps to an older project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, added, err := a.RepairProject(ctx, args[0])
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]any{"project": p, "added": added})
		}
		if added == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to repair.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Added %d missing step(s)\n\n", ui.Icon("✓", ui.StyleSuccess), added)
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderSteps(p))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectShowCmd, projectRenameCmd, projectDeleteCmd, projectRepairCmd)
}
