package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lvillar/docforge/config"
	"github.com/lvillar/docforge/logging"
)

var (
	flagConfPath string
	flagEnvFiles []string
)

var rootCmd = &cobra.Command{
	Use:          "docforge",
	Short:        "Generate branded business documents from templates",
	SilenceUsage: true,
}

// Run executes CLI.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}

	return 0
}

// loadConfig reads the configuration named by the global flags.
func loadConfig() (*config.Config, error) {
	return config.Load(flagConfPath, flagEnvFiles...)
}

func newLogger(conf *config.Config) (*zap.Logger, error) {
	return logging.New(conf.Logging.Level, conf.Logging.Format)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfPath, "config", "c", "", "Config path")
	rootCmd.PersistentFlags().StringSliceVar(&flagEnvFiles, "env-file", nil, "Env files to load before reading the environment (default .env)")

	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newTemplatesCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVersionCmd())
}
