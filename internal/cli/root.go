// internal/cli/root.go

// Package cli wires the tokbench cobra commands to configuration, providers,
// the benchmark runner and the report renderers.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/logging"
)

const envPrefix = "TOKBENCH"

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "tokbench",
	Short:         "tokbench measures local LLM generation speed in tokens per second",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appconfig.LoadWith(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		currentConfig = &cfg

		if err := logging.Init(cfg.LogFilePath(), cfg.Debug); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.LogEvent("tokbench %s: %s (config=%s)", appVersion, cmd.CommandPath(), configSource(cfg))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		logging.LogError("%v", err)
		_ = logging.Close()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (json, yaml or toml)")

	flags.Bool("debug", false, "enable debug logging (request payloads, stderr echo)")
	flags.String("logFile", "", "path to the log file")
	flags.Int("timeout", 0, "request timeout in seconds (0 = default)")
	flags.String("suite", "", "test suite file (json or toml); empty uses the built-in suite")
	flags.String("export", "", "write the report as JSON to this file or directory")
	flags.String("exportMarkdown", "", "write the report as Markdown to this file or directory")
	flags.String("metricsTextfile", "", "write Prometheus metrics in textfile format to this path")
	flags.Bool("showResponses", true, "print each prompt and model response")
	flags.Bool("renderMarkdown", false, "render model responses as terminal markdown")
	flags.Bool("warmup", false, "load each model before measuring")
	flags.Bool("tui", false, "show a live progress view instead of streaming output")

	for _, name := range []string{"debug", "logFile", "timeout", "suite", "export", "exportMarkdown", "metricsTextfile", "showResponses", "renderMarkdown", "warmup", "tui"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig loads .env and wires TOKBENCH_* environment overrides.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func configSource(cfg appconfig.Config) string {
	if cfg.ConfigPath == "" {
		return "defaults"
	}
	return cfg.ConfigPath
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
