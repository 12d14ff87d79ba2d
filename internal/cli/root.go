package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hawksec/hawk/internal/config"
)

var (
	cfgFile      string
	outputFormat string
	backendURL   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "hawk",
	Short: "Hawk CLI - vulnerability monitoring from the terminal",
	Long: `Hawk CLI gives command-line access to the Hawk security dashboard:
review and triage vulnerability alerts, follow live notifications, manage
OEM advisory sources, run NVD scans and track remediation progress.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. ctx is cancelled on interrupt so watch
// commands can exit cleanly.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.hawk/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log backend traffic to stderr")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("backend"))

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newAlertCmd())
	rootCmd.AddCommand(newNotificationCmd())
	rootCmd.AddCommand(newOEMCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newOverviewCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newTemplatesCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newReportCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := configDir(); err == nil {
		_ = os.MkdirAll(dir, 0700)
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	viper.SetEnvPrefix("HAWK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault("output", "table")
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("progress.driver", "sqlite")
	if dir, err := configDir(); err == nil {
		viper.SetDefault("progress.dsn", filepath.Join(dir, "progress.db"))
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".hawk"), nil
}

// loadConfig builds the application config from the environment with the
// CLI settings laid over it
func loadConfig() (*config.Config, error) {
	cfg := config.FromEnv()

	if v := viper.GetString("backend.url"); v != "" {
		cfg.Backend.URL = strings.TrimRight(v, "/")
	}
	if v := viper.GetString("backend.anon_key"); v != "" {
		cfg.Backend.AnonKey = v
	}
	if v := viper.GetString("progress.driver"); v != "" {
		cfg.Progress.Driver = v
	}
	if v := viper.GetString("progress.dsn"); v != "" {
		cfg.Progress.DSN = v
	}
	if v := viper.GetInt("scan.results_limit"); v > 0 {
		cfg.Scan.NVDResultsLimit = v
	}

	cfg.Logging = config.LoggingConfig{
		Level:      viper.GetString("log.level"),
		Format:     "console",
		OutputPath: "stderr",
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Metrics.Enabled = false

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'hawk config init')", err)
	}
	return cfg, nil
}

func getOutputFormat() string {
	if outputFormat != "" {
		return outputFormat
	}
	return viper.GetString("output")
}
