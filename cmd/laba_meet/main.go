package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rx3lixir/laba_meet/internal/config"
	"github.com/rx3lixir/laba_meet/pkg/logger"
)

const defaultConfigPath = "internal/config/config.yaml"

var configPath string

// rootCmd runs the server when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "laba_meet",
	Short: "Room and session coordination server for browser video meetings",
	Long: `laba_meet keeps track of live meeting rooms, decides who may enter them and
relays WebRTC signaling between participants over websockets.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the yaml config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// loadConfig reads and validates the config file the --config flag points at
func loadConfig() (*config.Config, error) {
	cm, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("error getting config file: %w", err)
	}

	c := cm.GetConfig()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func newLogger(c *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Env:   c.GeneralParams.Env,
		Level: c.GeneralParams.LogLevel,
	})
}
