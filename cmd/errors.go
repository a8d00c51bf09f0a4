package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/pipeline"
	"github.com/josephgoksu/PRDWing/internal/prd"
	"github.com/josephgoksu/PRDWing/internal/stages"
	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/ui"
)

// PrintError prints a user-friendly message. With --verbose the full
// technical error follows.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, ui.StyleError.Render(userMessage(err)))
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// userMessage maps domain errors onto short hints for the terminal.
func userMessage(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrRewindCancelled):
		return "Cancelled. No steps were changed."
	case errors.Is(err, ui.ErrNotInteractive):
		return "This change resets later steps. Rerun with --yes to confirm."
	case errors.Is(err, ui.ErrPromptCancelled):
		return "Cancelled."
	case errors.Is(err, app.ErrAmbiguous):
		return fmt.Sprintf("%v. Use more characters of the project id.", err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Sprintf("%v. Run 'prdwing project list' to see your projects.", err)
	case errors.Is(err, app.ErrStepBusy):
		return "That step is already running. Wait for it to finish."
	case errors.Is(err, app.ErrNotFinalized):
		return "The project is not finalized yet. Run 'prdwing finalize' first."
	case errors.Is(err, prd.ErrUnknownSection):
		return fmt.Sprintf("%v. Valid sections: %v", err, prd.Sections)
	case errors.Is(err, pipeline.ErrOutOfOrder):
		return fmt.Sprintf("Steps must run in order: %v", err)
	case errors.Is(err, stages.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, stages.ErrGeneration):
		return fmt.Sprintf("The language model call failed: %v. Check llm.provider and your API key.", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
