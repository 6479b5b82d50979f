package niclog

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/app"
	"github.com/saadjs/niclog/internal/config"
	"github.com/saadjs/niclog/internal/log"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg    *config.Config
	logger = log.Discard()
)

var rootCmd = &cobra.Command{
	Use:           "niclog",
	Short:         "niclog tracks nicotine use from your terminal",
	Long:          "niclog is a local-first nicotine tracker with daily limits, spending in your currency, statistics and reminders.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadRuntime(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func loadRuntime(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		if p, err := app.DefaultConfigPath(); err == nil {
			path = p
		}
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	level, err := log.ParseLevel(loaded.LogLevel)
	if err != nil {
		return err
	}
	logger = log.New(log.Config{
		Level:     level,
		Format:    loaded.LogFormat,
		Component: "niclog",
		Output:    cmd.ErrOrStderr(),
	})
	log.SetDefault(logger)
	cfg = loaded
	return nil
}
