package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Orchestrator owns the daemon loop: an immediate triage cycle on startup,
// then one cycle per check interval. Scheduling uses robfig/cron with a
// skip-if-still-running wrapper so a slow mail or ticket server can never
// stack overlapping cycles.
type Orchestrator struct {
	processor *Processor
	interval  int // seconds
	log       *slog.Logger
}

// NewOrchestrator creates an Orchestrator running one cycle every
// intervalSeconds.
func NewOrchestrator(processor *Processor, intervalSeconds int, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	return &Orchestrator{processor: processor, interval: intervalSeconds, log: log}
}

// Run blocks until ctx is cancelled. The initial cycle runs synchronously
// before the schedule starts so a freshly started agent drains its backlog
// right away.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("orchestrator starting", "check_interval_seconds", o.interval)

	o.runCycle(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := fmt.Sprintf("@every %ds", o.interval)
	if _, err := c.AddFunc(spec, func() { o.runCycle(ctx) }); err != nil {
		return fmt.Errorf("registering schedule %q: %w", spec, err)
	}
	c.Start()

	<-ctx.Done()
	o.log.Info("orchestrator received shutdown signal")

	// Let an in-flight cycle finish before returning.
	stopCtx := c.Stop()
	<-stopCtx.Done()
	o.log.Info("orchestrator stopped")
	return nil
}

func (o *Orchestrator) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := o.processor.RunCycle(ctx); err != nil && ctx.Err() == nil {
		o.log.Error("cycle error", "error", err)
	}
}
