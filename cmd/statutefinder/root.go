package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/config"
	logpkg "github.com/kailas-cloud/statutefinder/internal/logger"
	"github.com/kailas-cloud/statutefinder/internal/version"
)

var (
	configPath string
	envName    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "statutefinder",
	Short: "Find the BC statutes and sections that apply to a question",
	Long: `statutefinder narrows the catalog of British Columbia statutes down to the
acts that answer a plain-language question, using constrained model choices
over token-bounded batches and embedding similarity.

Configuration is read from config/<env>.yaml (ENV, default "local") or from
the file given with --config. ${VAR:-default} references are expanded.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (overrides --env)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, embedCmd, rankCmd, narrowCmd, sectionsCmd, chatCmd)
}

func currentEnv() string {
	if envName != "" {
		return envName
	}
	return config.GetEnv()
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(currentEnv())
}

// setup loads the config and builds a logger. loggerEnv picks the output
// format; CLI commands pass "cli" so results on stdout stay clean.
func setup(loggerEnv string) (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if loggerEnv == "cli" && logLevel == "" {
		level = ""
	}
	logger, err := logpkg.NewLogger(loggerEnv, level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
