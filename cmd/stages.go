/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/export"
	"github.com/josephgoksu/PRDWing/internal/prd"
	"github.com/josephgoksu/PRDWing/internal/stages"
	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <project>",
	Short: "Step 1: generate product ideas and a tech stack from your notes",
	Long: `Analyze reads your notes (--text and any --file attachments), asks the
language model for five product ideas and recommends a tech stack.
Your saved tech preferences override the recommendation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		files, _ := cmd.Flags().GetStringSlice("file")
		req := app.AnalyzeRequest{Text: text}
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return fmt.Errorf("read attachment: %w", err)
			}
			req.Attachments = append(req.Attachments, stages.Attachment{Name: filepath.Base(f), Text: string(data)})
		}

		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{withModel: true})
		if err != nil {
			return err
		}
		defer done()

		var (
			p   *store.Project
			res *stages.AnalyzeResult
		)
		confirm, err := confirmBefore(cmd, a, args[0], app.StepAnalysis)
		if err != nil {
			return err
		}
		err = withSpinner(cmd, "Analyzing your notes...", func(ctx context.Context) error {
			var err error
			p, res, err = a.Analyze(ctx, args[0], req, confirm)
			return err
		})
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.StyleTitle.Render("Ideas"))
		for i, idea := range res.Analysis.Ideas {
			fmt.Fprintf(out, "  %d. %s\n", i+1, idea)
		}
		fmt.Fprintln(out)
		printStack(out, res.Analysis.TechStack)
		fmt.Fprintf(out, "\nNext: prdwing select %s <number>\n", ui.ShortID(p.ID))
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <project> <idea>",
	Short: "Step 2: choose one of the generated ideas by number or text",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, sel, err := a.SelectIdea(ctx, args[0], strings.Join(args[1:], " "), confirmer(cmd))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), sel)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Selected: %s\n\nNext: prdwing refine %s --complete\n",
			ui.Icon("✓", ui.StyleSuccess), sel.SelectedIdea, ui.ShortID(p.ID))
		return nil
	},
}

var refineCmd = &cobra.Command{
	Use:   "refine <project>",
	Short: "Step 3: edit the selected idea and tech stack",
	Long: `Refine saves edits to the selected idea and tech stack. Without
--complete the edits are saved and the step stays open; with --complete the
step is finished so the PRD can be generated. Run without flags to print the
current refinement.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		var req app.RefineRequest
		if cmd.Flags().Changed("idea") {
			idea, _ := cmd.Flags().GetString("idea")
			req.RefinedIdea = &idea
		}
		req.TechStack.Frontend, _ = cmd.Flags().GetString("frontend")
		req.TechStack.Backend, _ = cmd.Flags().GetString("backend")
		req.TechStack.Database, _ = cmd.Flags().GetString("database")
		req.TechStack.Hosting, _ = cmd.Flags().GetString("hosting")
		req.Complete, _ = cmd.Flags().GetBool("complete")

		if !anyChanged(cmd, "idea", "frontend", "backend", "database", "hosting", "complete") {
			p, err := a.GetProject(ctx, args[0])
			if err != nil {
				return err
			}
			cur, err := a.Refinement(p)
			if err != nil {
				return err
			}
			return printRefinement(cmd.OutOrStdout(), cur)
		}

		p, refined, err := a.Refine(ctx, args[0], req, confirmer(cmd))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), refined)
		}
		if err := printRefinement(cmd.OutOrStdout(), *refined); err != nil {
			return err
		}
		if p.Step(app.StepRefinement).Status == store.StepCompleted {
			fmt.Fprintf(cmd.OutOrStdout(), "\nNext: prdwing generate %s\n", ui.ShortID(p.ID))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), ui.StyleSubtle.Render("\nSaved. Add --complete when you are done editing."))
		}
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <project>",
	Short: "Step 4: generate the PRD from the refined idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{withModel: true})
		if err != nil {
			return err
		}
		defer done()

		var (
			p   *store.Project
			rec prd.Record
		)
		confirm, err := confirmBefore(cmd, a, args[0], app.StepPRD)
		if err != nil {
			return err
		}
		err = withSpinner(cmd, "Writing the PRD...", func(ctx context.Context) error {
			var err error
			p, rec, err = a.GeneratePRD(ctx, args[0], confirm)
			return err
		})
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), rec)
		}
		fmt.Fprintln(cmd.OutOrStdout(), prd.RenderMarkdown(rec, p.Name))
		fmt.Fprintf(cmd.OutOrStdout(), "Next: prdwing finalize %s\n", ui.ShortID(p.ID))
		return nil
	},
}

var regenerateCmd = &cobra.Command{
	Use:       "regenerate <project> <section>",
	Short:     "Regenerate one section of the PRD",
	Long:      "Regenerate one PRD section. Sections: " + strings.Join(prd.Sections, ", "),
	Args:      cobra.ExactArgs(2),
	ValidArgs: prd.Sections,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{withModel: true})
		if err != nil {
			return err
		}
		defer done()

		var (
			p   *store.Project
			rec prd.Record
		)
		confirm, err := confirmBefore(cmd, a, args[0], app.StepPRD)
		if err != nil {
			return err
		}
		err = withSpinner(cmd, "Regenerating "+args[1]+"...", func(ctx context.Context) error {
			var err error
			p, rec, err = a.RegenerateSection(ctx, args[0], args[1], confirm)
			return err
		})
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), rec)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Regenerated %s\n\n", ui.Icon("✓", ui.StyleSuccess), args[1])
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderSteps(p))
		if p.Step(app.StepPRD).Status != store.StepCompleted {
			fmt.Fprintf(cmd.OutOrStdout(), "\nNext: prdwing advance %s %d\n", ui.ShortID(p.ID), app.StepPRD)
		}
		return nil
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance <project> <step>",
	Short: "Complete a step that already holds content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := parseOrder(args[1])
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, err := a.CompleteStep(ctx, args[0], order)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderSteps(p))
		return nil
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <project>",
	Short: "Step 5: render the final PRD and a getting-started prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("export")
		format, err := export.ParseFormat(mustString(cmd, "format"))
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{withModel: true})
		if err != nil {
			return err
		}
		defer done()

		var (
			p   *store.Project
			fin *stages.Finalized
		)
		confirm, err := confirmBefore(cmd, a, args[0], app.StepFinalize)
		if err != nil {
			return err
		}
		err = withSpinner(cmd, "Finalizing...", func(ctx context.Context) error {
			var err error
			p, fin, err = a.Finalize(ctx, args[0], confirm)
			return err
		})
		if err != nil {
			return err
		}

		var path string
		if dir != "" {
			if path, err = a.Export(ctx, p.ID, dir, format); err != nil {
				return err
			}
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]any{"finalized": fin, "path": path})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, fin.Markdown)
		fmt.Fprintln(out, ui.RenderPanel("Getting started prompt", fin.GettingStartedPrompt))
		if path != "" {
			fmt.Fprintf(out, "\n%s Saved %s\n", ui.Icon("✓", ui.StyleSuccess), path)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Write a finalized PRD to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(mustString(cmd, "format"))
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		path, err := a.Export(ctx, args[0], mustString(cmd, "dir"), format)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]string{"path": path})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved %s\n", ui.Icon("✓", ui.StyleSuccess), path)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <project> <step> --set key=value",
	Short: "Edit the saved content of a step",
	Long: `Edit merges key=value pairs into a step's saved content. Values that
parse as JSON are stored as JSON, anything else as a string. Editing a
completed step resets every later step to pending, after confirmation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := parseOrder(args[1])
		if err != nil {
			return err
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		patch, err := parseAssignments(sets)
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		a, done, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer done()

		p, err := a.EditStep(ctx, args[0], order, patch, confirmer(cmd))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderSteps(p))
		return nil
	},
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func parseOrder(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || store.StepTitle(n) == "" {
		return 0, fmt.Errorf("%w: step must be a number from 1 to %d", stages.ErrInvalidInput, store.StepCount)
	}
	return n, nil
}

// parseAssignments turns key=value pairs into a content patch.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: pass at least one --set key=value", stages.ErrInvalidInput)
	}
	patch := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", stages.ErrInvalidInput, pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			patch[key] = decoded
		} else {
			patch[key] = value
		}
	}
	return patch, nil
}

func printStack(w io.Writer, s prd.TechStack) {
	fmt.Fprintln(w, ui.StyleTitle.Render("Tech stack"))
	fmt.Fprintf(w, "  Frontend: %s\n  Backend:  %s\n  Database: %s\n  Hosting:  %s\n", s.Frontend, s.Backend, s.Database, s.Hosting)
}

func printRefinement(w io.Writer, r stages.Refinement) error {
	if isJSON() {
		return printJSON(w, r)
	}
	fmt.Fprintln(w, ui.StyleTitle.Render("Selected idea"))
	fmt.Fprintf(w, "  %s\n\n", r.SelectedIdea)
	fmt.Fprintln(w, ui.StyleTitle.Render("Refined idea"))
	fmt.Fprintf(w, "  %s\n\n", r.RefinedIdea)
	printStack(w, r.TechStack)
	return nil
}

func init() {
	analyzeCmd.Flags().StringP("text", "t", "", "project notes")
	analyzeCmd.Flags().StringSliceP("file", "f", nil, "attach a text file (repeatable)")

	refineCmd.Flags().String("idea", "", "refined idea text")
	refineCmd.Flags().String("frontend", "", "frontend choice")
	refineCmd.Flags().String("backend", "", "backend choice")
	refineCmd.Flags().String("database", "", "database choice")
	refineCmd.Flags().String("hosting", "", "hosting choice")
	refineCmd.Flags().Bool("complete", false, "finish the refinement step")

	finalizeCmd.Flags().String("export", "", "also write the PRD into this directory")
	finalizeCmd.Flags().String("format", "md", "export format: md, json or yaml")

	exportCmd.Flags().String("dir", ".", "output directory")
	exportCmd.Flags().String("format", "md", "export format: md, json or yaml")

	editCmd.Flags().StringArray("set", nil, "key=value to merge into the step content (repeatable)")

	rootCmd.AddCommand(analyzeCmd, selectCmd, refineCmd, generateCmd, regenerateCmd, advanceCmd, finalizeCmd, exportCmd, editCmd)
}
