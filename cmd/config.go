package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oncallops/mailtriage/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and manage mailtriage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		// Redact secrets.
		if cfg.Mailbox.Password != "" {
			cfg.Mailbox.Password = "***"
		}
		if cfg.SMTP.Password != "" {
			cfg.SMTP.Password = "***"
		}
		if cfg.Jira.APIToken != "" {
			cfg.Jira.APIToken = "***"
		}
		if cfg.Dedup.RedisPassword != "" {
			cfg.Dedup.RedisPassword = "***"
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath(cfgFile)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default config and rule files",
	Long: `Creates ~/.mailtriage/config.json and ~/.mailtriage/rules.yaml with
default contents if they do not exist. Existing files are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		path, err := config.ConfigPath(cfgFile)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Println("Wrote", path)
		} else {
			fmt.Println("Exists", path)
		}

		if _, err := os.Stat(cfg.Rules.Path); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(cfg.Rules.Path), 0o700); err != nil {
				return fmt.Errorf("creating rules directory: %w", err)
			}
			if err := os.WriteFile(cfg.Rules.Path, []byte(config.DefaultRulesYAML), 0o600); err != nil {
				return fmt.Errorf("writing rules file: %w", err)
			}
			fmt.Println("Wrote", cfg.Rules.Path)
		} else {
			fmt.Println("Exists", cfg.Rules.Path)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
}
