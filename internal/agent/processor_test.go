package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/oncallops/mailtriage/internal/dedup"
	"github.com/oncallops/mailtriage/internal/mailbox"
	"github.com/oncallops/mailtriage/internal/parse"
)

// fakeSource serves a fixed batch and records MarkHandled calls.
type fakeSource struct {
	messages []mailbox.RawMessage
	handled  []string
	fetchErr error
}

func (f *fakeSource) FetchUnprocessed(_ context.Context) ([]mailbox.RawMessage, error) {
	return f.messages, f.fetchErr
}

func (f *fakeSource) MarkHandled(_ context.Context, deliveryID string) error {
	f.handled = append(f.handled, deliveryID)
	return nil
}

func (f *fakeSource) Close() error { return nil }

func rawMail(deliveryID, messageID, from, subject, body string) mailbox.RawMessage {
	data := fmt.Sprintf("From: %s\r\nSubject: %s\r\nMessage-ID: <%s>\r\n\r\n%s\r\n",
		from, subject, messageID, body)
	return mailbox.RawMessage{DeliveryID: deliveryID, Data: []byte(data)}
}

func newTestProcessor(t *testing.T, source *fakeSource, store dedup.Store, tk *fakeTicketer) *Processor {
	t.Helper()
	table := lifecycleTable(t)
	normalizer := parse.NewNormalizer("agent@example.com", nil)
	lifecycle := newTestLifecycle(t, table, &fakeNotifier{configured: true}, tk)
	return NewProcessor(source, normalizer, store, lifecycle, nil)
}

func TestRunCycleProcessesBatch(t *testing.T) {
	source := &fakeSource{messages: []mailbox.RawMessage{
		rawMail("1", "a@example.com", "alice@example.com", "URGENT: Database outage", "production db is down"),
		rawMail("2", "b@example.com", "bob@example.com", "dashboard a bit slow", "renders slowly since yesterday"),
		rawMail("3", "c@example.com", "carol@example.com", "Automatic Reply: Out of Office", "away"),
	}}
	ticketer := &fakeTicketer{available: true}
	p := newTestProcessor(t, source, dedup.NewMemory(), ticketer)

	report, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Fetched != 3 || report.Processed != 2 || report.Rejected != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	// Every consumed message is marked handled, including the rejected one.
	if len(source.handled) != 3 {
		t.Fatalf("expected 3 MarkHandled calls, got %v", source.handled)
	}
	if len(report.Incidents) != 2 {
		t.Fatalf("expected 2 terminal incidents, got %d", len(report.Incidents))
	}
}

func TestRunCycleDeduplicatesAcrossCycles(t *testing.T) {
	msg := rawMail("1", "same@example.com", "alice@example.com", "URGENT outage", "down")
	store := dedup.NewMemory()

	first := &fakeSource{messages: []mailbox.RawMessage{msg}}
	p := newTestProcessor(t, first, store, &fakeTicketer{available: true})
	r1, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	// Same message redelivered in a later cycle (e.g. \Seen flags lost).
	second := &fakeSource{messages: []mailbox.RawMessage{
		{DeliveryID: "99", Data: msg.Data},
	}}
	p2 := newTestProcessor(t, second, store, &fakeTicketer{available: true})
	r2, err := p2.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	if r1.Processed != 1 || r2.Processed != 0 || r2.Duplicates != 1 {
		t.Fatalf("expected exactly one incident across cycles: first=%+v second=%+v", r1, r2)
	}
	// The duplicate is still marked handled so it is not redelivered again.
	if len(second.handled) != 1 {
		t.Fatalf("duplicate message must be marked handled, got %v", second.handled)
	}
}

func TestRunCycleIsolatesPerIncidentFailures(t *testing.T) {
	source := &fakeSource{messages: []mailbox.RawMessage{
		rawMail("1", "a@example.com", "alice@example.com", "URGENT outage one", "down"),
		rawMail("2", "b@example.com", "bob@example.com", "URGENT outage two", "also down"),
	}}
	// Available panics, simulating an unexpected per-incident failure
	// beyond the lifecycle's own error absorption.
	p := newTestProcessor(t, source, dedup.NewMemory(), &fakeTicketer{panics: true})

	report, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("batch must survive per-incident panics: %v", err)
	}
	if report.Processed != 2 {
		t.Fatalf("both incidents must be consumed, got %+v", report)
	}
	for _, inc := range report.Incidents {
		var found bool
		for _, note := range inc.ProcessingNotes {
			if strings.Contains(note, "Unexpected processing error") {
				found = true
			}
		}
		if !found {
			t.Fatalf("incident %s missing failure note: %v", inc.ID, inc.ProcessingNotes)
		}
	}
	if len(source.handled) != 2 {
		t.Fatalf("both messages must be marked handled, got %v", source.handled)
	}
}

func TestRunCycleReturnsFetchErrors(t *testing.T) {
	source := &fakeSource{fetchErr: fmt.Errorf("imap: connection reset")}
	p := newTestProcessor(t, source, dedup.NewMemory(), &fakeTicketer{})
	if _, err := p.RunCycle(context.Background()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}
