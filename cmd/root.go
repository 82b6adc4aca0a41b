package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpolski/tm/internal/output"
	"github.com/mpolski/tm/internal/timer"
	"github.com/mpolski/tm/internal/tmetric"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui       *output.UI
	timerSvc *timer.Service

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "tm",
	Short: "TMetric timers from the command line and over MCP",
	Long: `tm drives a TMetric account's timer: start and stop work, inspect
today's entries, and delete recent mistakes. The same operations are
exposed as MCP tools for LLM agent hosts via 'tm mcp'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		if ui != nil {
			ui.Error("%v", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/tm/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "tm")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	viper.SetDefault("api_url", tmetric.DefaultBaseURL)
	viper.SetDefault("api_token", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The API client is built lazily so config/version/help run without a token.
}

// rootRun handles `tm` with no subcommand: show today's status.
func rootRun(cmd *cobra.Command) error {
	if viper.GetString("api_token") == "" {
		return cmd.Help()
	}
	return statusRun()
}

// getService returns the shared timer service, building it on first call.
func getService() (*timer.Service, error) {
	if timerSvc != nil {
		return timerSvc, nil
	}

	token := viper.GetString("api_token")
	if token == "" {
		return nil, fmt.Errorf("no API token configured: set TM_API_TOKEN or run 'tm config init' (token under Profile Settings in TMetric)")
	}

	client := tmetric.NewClient(viper.GetString("api_url"), token)
	timerSvc = timer.NewService(client)
	return timerSvc, nil
}
