package cmd

import (
	"context"
	"fmt"

	"github.com/oncallops/mailtriage/internal/config"
	"github.com/oncallops/mailtriage/internal/dedup"
	"github.com/oncallops/mailtriage/internal/mailbox"
	"github.com/oncallops/mailtriage/internal/ticket"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify configuration, mailbox, SMTP, and Jira access",
	Long: `Checks that the rule table loads, the dedup store opens, and each
external collaborator (IMAP mailbox, SMTP server, Jira) is configured and
reachable. Missing SMTP or Jira configuration is reported but not fatal:
the agent runs with those steps skipped.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	allOK := true

	fmt.Println("=== mailtriage doctor ===")
	fmt.Println()

	fmt.Print("Rule table ............... ")
	table, err := config.LoadRules(cfg.Rules.Path)
	if err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else {
		fmt.Printf("OK (%d priority levels, %d teams, default %s)\n",
			len(table.Priorities), len(table.Teams), table.Default.Name)
	}

	fmt.Print("Dedup store .............. ")
	store, err := dedup.New(cfg.Dedup)
	if err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else {
		fmt.Printf("OK (%s)\n", driverName(cfg.Dedup.Driver))
		store.Close()
	}

	fmt.Print("Mailbox (IMAP) ........... ")
	source := mailbox.NewIMAPSource(cfg.Mailbox, nil)
	if !source.IsConfigured() {
		fmt.Println("FAIL (server, username, or password not configured)")
		allOK = false
	} else if _, err := source.FetchUnprocessed(ctx); err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else {
		fmt.Printf("OK (%s)\n", cfg.Mailbox.Server)
		source.Close()
	}

	fmt.Print("SMTP sender .............. ")
	notifier := mailbox.NewSMTPNotifier(cfg.SMTP)
	if !notifier.IsConfigured() {
		fmt.Println("SKIP (not configured — acknowledgements will be skipped)")
	} else {
		fmt.Printf("OK (%s, sender %s)\n", cfg.SMTP.Server, cfg.SMTP.Sender)
	}

	fmt.Print("Jira ..................... ")
	ticketer := ticket.NewJira(cfg.Jira, nil)
	if !ticketer.Available(ctx) {
		fmt.Println("SKIP (not configured or unreachable — tickets will be skipped)")
	} else {
		fmt.Printf("OK (%s, project %s)\n", cfg.Jira.URL, cfg.Jira.ProjectKey)
	}

	fmt.Println()
	if !allOK {
		return fmt.Errorf("doctor found problems; fix them before running the agent")
	}
	fmt.Println("All checks passed.")
	return nil
}

func driverName(driver string) string {
	if driver == "" {
		return "memory"
	}
	return driver
}
