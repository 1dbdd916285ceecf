package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mailtriage",
	Short: "Rule-based triage agent for incident reports arriving by mail",
	Long: `mailtriage polls an incident mailbox, normalizes each report into a
structured incident, classifies priority and owning team from configurable
keyword rules, acknowledges the assigned team, and escalates top-severity
incidents to a ticket.

Get started:
  mailtriage config init   Write default config and rule files
  mailtriage doctor        Verify config, mailbox, SMTP, and Jira access
  mailtriage cycle         Run one triage cycle and exit
  mailtriage agent         Run the polling daemon`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.mailtriage/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		agentCmd,
		cycleCmd,
		classifyCmd,
		configCmd,
		doctorCmd,
	)
}

func initLogging() {
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}
