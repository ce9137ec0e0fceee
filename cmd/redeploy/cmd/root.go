package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/melih/redeploy/internal/config"
	"github.com/melih/redeploy/internal/logging"
	"github.com/melih/redeploy/internal/render"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string
	logFormat    string
)

// settings are resolved once per invocation in loadSettings.
var (
	cfg    *config.Config
	format render.Format

	// syncLog flushes the logger built by loadSettings.
	syncLog = func() error { return nil }
)

// rootCmd represents the base command. Without a subcommand it runs a cycle.
var rootCmd = &cobra.Command{
	Use:   "redeploy",
	Short: "Rebuild and restart the five-letters bot container",
	Long: `redeploy stops and removes the bot container, rebuilds its image and starts a
fresh container with the env file and the persistent log volume, then lists
all containers.

Settings come from redeploy.yaml, REDEPLOY_* environment variables and flags.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE:              runCycle,
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	_ = syncLog()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./redeploy.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")
	addCycleFlags(rootCmd)
}

// loadSettings reads the config file, environment and flags, and builds the
// logger shared by every command.
func loadSettings(cmd *cobra.Command, _ []string) error {
	v := config.New(cfgFile)
	if err := config.Read(v); err != nil {
		return configError(err)
	}
	if err := bindFlags(v, cmd); err != nil {
		return configError(err)
	}

	c, err := config.Load(v)
	if err != nil {
		return configError(fmt.Errorf("invalid config: %w", err))
	}
	f, err := render.ParseFormat(outputFormat)
	if err != nil {
		return configError(err)
	}
	l, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return configError(err)
	}

	cfg, format, syncLog = c, f, l.Sync
	if used := v.ConfigFileUsed(); used != "" {
		l.Debug("loaded config", zap.String("file", used))
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), l))
	return nil
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"no-cache":   "no_cache",
	"dockerfile": "dockerfile",
	"env-file":   "env_file",
	"name":       "container_name",
	"tag":        "image_tag",
	"addr":       "serve.addr",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}
