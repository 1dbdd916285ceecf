package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/oncallops/mailtriage/internal/agent"
	"github.com/oncallops/mailtriage/internal/classify"
	"github.com/oncallops/mailtriage/internal/config"
	"github.com/oncallops/mailtriage/internal/dedup"
	"github.com/oncallops/mailtriage/internal/mailbox"
	"github.com/oncallops/mailtriage/internal/parse"
	"github.com/oncallops/mailtriage/internal/ticket"
	"github.com/spf13/cobra"
)

var agentInterval int

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the incident triage daemon",
	Long: `Starts the mailtriage polling loop. Each cycle the agent will:
  1. Fetch unread messages from the incident mailbox
  2. Normalize each message into an incident (filtering auto-replies,
     bounces, and the agent's own outbound mail)
  3. Classify priority and owning team from the keyword rule table
  4. Send an acknowledgement mail to the assigned team
  5. Create a ticket for incidents at the top severity level

An initial cycle runs immediately on startup; afterwards one cycle runs
per check interval. Cycles never overlap.

Examples:
  mailtriage agent                  # poll at the configured interval
  mailtriage agent --interval 30    # override the interval (seconds)`,
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().IntVar(&agentInterval, "interval", 0,
		"Check interval in seconds (overrides config)")
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down agent gracefully...")
		cancel()
	}()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if agentInterval > 0 {
		cfg.Agent.CheckIntervalSeconds = agentInterval
	}

	processor, cleanup, err := buildProcessor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := agent.NewOrchestrator(processor, cfg.Agent.CheckIntervalSeconds, slog.Default())
	return orch.Run(ctx)
}

// buildProcessor wires the full triage pipeline from configuration.
// The returned cleanup closes the mailbox session and the dedup store.
func buildProcessor(cfg *config.Config) (*agent.Processor, func(), error) {
	table, err := config.LoadRules(cfg.Rules.Path)
	if err != nil {
		// No rule table means nothing can be classified; refuse to start.
		return nil, nil, fmt.Errorf("loading rule table: %w", err)
	}

	store, err := dedup.New(cfg.Dedup)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dedup store: %w", err)
	}

	log := slog.Default()
	source := mailbox.NewIMAPSource(cfg.Mailbox, log)
	notifier := mailbox.NewSMTPNotifier(cfg.SMTP)
	ticketer := ticket.NewJira(cfg.Jira, log)
	normalizer := parse.NewNormalizer(cfg.SMTP.Sender, log)
	engine := classify.NewEngine(table, log)
	lifecycle := agent.NewLifecycle(table, engine, notifier, ticketer, cfg.Agent.Name, cfg.Jira, log)
	processor := agent.NewProcessor(source, normalizer, store, lifecycle, log)

	cleanup := func() {
		if err := source.Close(); err != nil {
			log.Warn("closing mailbox session", "error", err)
		}
		if err := store.Close(); err != nil {
			log.Warn("closing dedup store", "error", err)
		}
	}
	return processor, cleanup, nil
}
