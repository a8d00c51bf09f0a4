/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PRDWing/internal/config"
	"github.com/josephgoksu/PRDWing/internal/logger"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables debug logging.
	verbose bool
	// jsonOutput switches command output to JSON.
	jsonOutput bool
	// assumeYes answers yes to every confirmation.
	assumeYes bool
	// version is the application version.
	version = "0.1.0"

	// appConfig is loaded in initConfig before any command runs.
	appConfig *config.Config
	log       = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prdwing",
	Short: "PRDWing - turn rough product notes into a PRD",
	Long: `PRDWing walks a project through five steps: input analysis, idea
selection, idea refinement, PRD generation and finalization. Each step is
saved locally, so you can stop, edit an earlier step and pick up again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetCommand(cmd.CommandPath())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		PrintError(err)
		os.Exit(1)
	}
}

// GetVersion returns the build version.
func GetVersion() string {
	return version
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.prdwing/.prdwing.yaml, $HOME/.prdwing.yaml or ./.prdwing.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initConfig reads the config file and environment and sets up logging.
func initConfig() {
	cfg, err := config.Init(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	appConfig = cfg

	log = logger.New(logger.Options{Verbose: viper.GetBool("verbose")})
	logger.SetBasePath(config.DataDir())
	logger.SetVersion(version)

	if f := viper.ConfigFileUsed(); f != "" {
		log.Debug().Str("file", f).Msg("using config file")
	}
}
