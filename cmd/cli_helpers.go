package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/config"
	"github.com/josephgoksu/PRDWing/internal/llm"
	"github.com/josephgoksu/PRDWing/internal/metrics"
	"github.com/josephgoksu/PRDWing/internal/pipeline"
	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/telemetry"
	"github.com/josephgoksu/PRDWing/internal/ui"
)

func isJSON() bool {
	return viper.GetBool("json")
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// appOptions selects what openApp wires beyond the store.
type appOptions struct {
	// withModel builds the language model client, prompting for a missing
	// API key on a terminal.
	withModel bool
	prefs     app.PreferenceSource
}

// openApp opens the project store and wires the application. The returned
// func releases everything it opened.
func openApp(ctx context.Context, opts appOptions) (*app.Context, func(), error) {
	dataDir := config.DataDir()
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.New(config.DBPath(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("open project store at %s: %w", config.DBPath(), err)
	}

	tel := newTelemetry(fs, dataDir)
	cleanup := func() {
		_ = tel.Close()
		_ = st.Close()
	}

	var completer llm.Completer
	if opts.withModel {
		c, err := newCompleter(ctx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if c != nil {
			completer = c
		}
	}

	prefs := opts.prefs
	if prefs == nil {
		prefs = config.ViperPreferences{}
	}

	a := app.NewContext(app.Options{
		Store:       st,
		Completer:   completer,
		Preferences: prefs,
		Telemetry:   tel,
		Metrics:     metrics.New(),
		Fs:          fs,
		Logger:      log,
	})
	return a, cleanup, nil
}

// newCompleter builds the configured model client. It returns nil without
// an error when no API key is available and none can be asked for; stage
// commands then fail with a configuration hint.
func newCompleter(ctx context.Context) (*llm.ChatCompleter, error) {
	cfg, err := config.LoadLLMConfig()
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" && cfg.Provider != llm.ProviderOllama {
		if !ui.IsInteractive() || isJSON() {
			return nil, nil
		}
		key, err := ui.PromptAPIKey(string(cfg.Provider))
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}
	c, err := llm.NewCompleter(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}
	log.Debug().Str("provider", string(cfg.Provider)).Str("model", cfg.Model).Msg("language model ready")
	return c, nil
}

func newTelemetry(fs afero.Fs, dataDir string) telemetry.Client {
	if appConfig == nil || !appConfig.Telemetry.Enabled {
		return telemetry.NewNoopClient()
	}
	id, err := telemetry.LoadOrCreateInstallID(fs, dataDir)
	if err != nil {
		log.Debug().Err(err).Msg("telemetry disabled")
		return telemetry.NewNoopClient()
	}
	c, err := telemetry.New(telemetry.ClientConfig{
		Enabled:    true,
		APIKey:     appConfig.Telemetry.APIKey,
		DistinctID: id,
		Version:    version,
		Endpoint:   appConfig.Telemetry.Endpoint,
	})
	if err != nil {
		log.Debug().Err(err).Msg("telemetry disabled")
		return telemetry.NewNoopClient()
	}
	return c
}

// confirmer returns the rewind confirmation used by CLI commands.
func confirmer(cmd *cobra.Command) pipeline.ConfirmFunc {
	c := ui.Confirmer{
		AssumeYes:   assumeYes,
		Interactive: ui.IsInteractive() && !isJSON(),
		Out:         cmd.ErrOrStderr(),
	}
	return c.Confirm
}

// confirmBefore asks for any rewind the step at order needs before a
// spinner takes over the terminal. The returned func approves the rewind
// that was already confirmed.
func confirmBefore(cmd *cobra.Command, a *app.Context, ref string, order int) (pipeline.ConfirmFunc, error) {
	ctx := commandContext(cmd)
	p, err := a.GetProject(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !pipeline.NeedsRewind(p.Steps, order) {
		return nil, nil
	}
	msg := fmt.Sprintf("Re-running %q resets every later step to pending. Continue?", p.Step(order).Title)
	ok, err := confirmer(cmd)(ctx, msg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pipeline.ErrRewindCancelled
	}
	return pipeline.Approved, nil
}

// withSpinner runs a model-backed operation behind a spinner on stderr.
func withSpinner(cmd *cobra.Command, title string, fn func(context.Context) error) error {
	ctx := commandContext(cmd)
	out := cmd.ErrOrStderr()
	if isJSON() {
		out = io.Discard
	}
	return ui.RunWithSpinner(ctx, out, title, fn)
}

// commandContext returns the command's context, or Background when the
// command was invoked without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
