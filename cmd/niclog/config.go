package niclog

import (
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saadjs/niclog/internal/app"
	"github.com/saadjs/niclog/internal/config"
	"github.com/saadjs/niclog/internal/service"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create niclog configuration",
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return app.DefaultConfigPath()
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after file, .env and environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *runtimeConfig()
		if c.MQTT.Password != "" {
			c.MQTT.Password = "********"
		}
		out, err := yaml.Marshal(&c)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		if path, err := resolveConfigPath(); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "List values kept in the database key/value store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			values, err := service.ListConfig(sqldb)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintln(cmd.OutOrStdout(), "KEY\tVALUE")
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, values[k])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd, configStoreCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
}
