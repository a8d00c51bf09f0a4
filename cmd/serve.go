/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PRDWing/internal/config"
	"github.com/josephgoksu/PRDWing/internal/server"
	"github.com/josephgoksu/PRDWing/internal/ui"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API for the desktop app",
	Long: `Serve runs a local HTTP API over the same project store the CLI uses.
Tech preferences are re-read whenever the config file changes. Metrics are
served at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen address (default from server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, fmt.Sprintf("listen port (default from server.port, %d)", config.DefaultServerPort))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	opts := server.Options{
		Host:    appConfig.Server.Host,
		Port:    appConfig.Server.Port,
		Origins: appConfig.Server.Origins,
	}
	if serveHost != "" {
		opts.Host = serveHost
	}
	if servePort != 0 {
		opts.Port = servePort
	}

	a, done, err := openApp(ctx, appOptions{withModel: true, prefs: config.WatchPreferences(log)})
	if err != nil {
		return err
	}
	defer done()

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	srv := server.New(a, opts, log)
	srv.Start(&wg, errChan)

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "%s PRDWing API on http://%s (Ctrl+C to stop)\n", ui.Icon("●", ui.StylePrimary), srv.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case runErr = <-errChan:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
	wg.Wait()
	return runErr
}
