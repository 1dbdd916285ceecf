package cmd

import (
	"context"
	"fmt"

	"github.com/oncallops/mailtriage/internal/config"
	"github.com/spf13/cobra"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one triage cycle and exit",
	Long: `Fetches and triages the current mailbox backlog once, prints a
summary, and exits. Useful from external schedulers (cron, systemd timers)
and for verifying a new rule table against live traffic.`,
	RunE: runCycle,
}

func runCycle(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	processor, cleanup, err := buildProcessor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := processor.RunCycle(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Cycle complete: fetched=%d processed=%d rejected=%d duplicates=%d failed=%d\n",
		report.Fetched, report.Processed, report.Rejected, report.Duplicates, report.Failed)
	for _, inc := range report.Incidents {
		ticketKey := inc.TicketKey
		if ticketKey == "" {
			ticketKey = "-"
		}
		fmt.Printf("  [%s] %-12s team=%s ticket=%s ack=%t  %s\n",
			inc.Priority, inc.ID, inc.AssignedTeam, ticketKey, inc.IsAcknowledged, inc.Subject)
	}
	return nil
}
