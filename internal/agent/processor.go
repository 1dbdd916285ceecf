package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oncallops/mailtriage/internal/dedup"
	"github.com/oncallops/mailtriage/internal/mailbox"
	"github.com/oncallops/mailtriage/internal/parse"
	"github.com/oncallops/mailtriage/models"
)

// Report summarises one triage cycle. Consumers (the daemon loop, the
// one-shot command) use it for logging only; the audit trail itself lives
// in each incident's processing notes.
type Report struct {
	Fetched    int
	Processed  int
	Rejected   int
	Duplicates int
	Failed     int
	Incidents  []*models.Incident
}

// Processor drives one batch of raw messages through normalization, dedup,
// classification, and the per-incident lifecycle. Incidents are processed
// strictly sequentially and each is isolated: an unexpected failure in one
// never stops the loop.
type Processor struct {
	source     mailbox.Source
	normalizer *parse.Normalizer
	store      dedup.Store
	lifecycle  *Lifecycle
	log        *slog.Logger
}

// NewProcessor wires a Processor.
func NewProcessor(source mailbox.Source, normalizer *parse.Normalizer, store dedup.Store,
	lifecycle *Lifecycle, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		source:     source,
		normalizer: normalizer,
		store:      store,
		lifecycle:  lifecycle,
		log:        log,
	}
}

// RunCycle executes one full fetch-and-triage pass. Only a failure to
// fetch at all is returned as an error; everything per-message is absorbed
// into the report and the audit trail.
func (p *Processor) RunCycle(ctx context.Context) (*Report, error) {
	raws, err := p.source.FetchUnprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	report := &Report{Fetched: len(raws)}
	if len(raws) == 0 {
		p.log.Info("processor: no new messages this cycle")
		return report, nil
	}
	p.log.Info("processor: starting cycle", "fetched", len(raws))

	for _, raw := range raws {
		p.consume(ctx, raw, report)
	}

	p.log.Info("processor: cycle finished",
		"fetched", report.Fetched,
		"processed", report.Processed,
		"rejected", report.Rejected,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
	)
	return report, nil
}

// consume handles one raw message end to end. The message is marked
// handled at the source no matter what happens, so it is never redelivered.
func (p *Processor) consume(ctx context.Context, raw mailbox.RawMessage, report *Report) {
	defer func() {
		if err := p.source.MarkHandled(ctx, raw.DeliveryID); err != nil {
			p.log.Warn("processor: marking message handled", "delivery_id", raw.DeliveryID, "error", err)
		}
	}()

	inc, err := p.normalizer.Normalize(raw)
	if err != nil {
		var rej *parse.RejectedError
		if errors.As(err, &rej) {
			report.Rejected++
			return
		}
		report.Failed++
		p.log.Error("processor: normalizing message", "delivery_id", raw.DeliveryID, "error", err)
		return
	}

	seen, err := p.store.Seen(ctx, inc.ID)
	if err != nil {
		// A broken dedup backend must not stop triage; the worst case is
		// processing a message twice.
		p.log.Warn("processor: dedup lookup failed, treating as unseen", "incident_id", inc.ID, "error", err)
	}
	if seen {
		report.Duplicates++
		p.log.Info("processor: skipping already processed incident", "incident_id", inc.ID, "delivery_id", raw.DeliveryID)
		return
	}
	if err := p.store.Record(ctx, inc.ID); err != nil {
		p.log.Warn("processor: recording incident id", "incident_id", inc.ID, "error", err)
	}

	p.runIsolated(ctx, inc)
	report.Processed++
	report.Incidents = append(report.Incidents, inc)
}

// runIsolated executes the lifecycle behind a panic guard so an unexpected
// per-incident failure is logged against that incident and the batch moves on.
func (p *Processor) runIsolated(ctx context.Context, inc *models.Incident) {
	defer func() {
		if r := recover(); r != nil {
			inc.AddNote(fmt.Sprintf("Unexpected processing error: %v", r))
			p.log.Error("processor: unexpected failure in incident lifecycle", "incident_id", inc.ID, "panic", r)
		}
	}()
	p.lifecycle.Run(ctx, inc)
}
