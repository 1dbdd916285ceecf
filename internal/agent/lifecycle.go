package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oncallops/mailtriage/internal/classify"
	"github.com/oncallops/mailtriage/internal/config"
	"github.com/oncallops/mailtriage/internal/mailbox"
	"github.com/oncallops/mailtriage/internal/ticket"
	"github.com/oncallops/mailtriage/models"
)

// State is one step of the per-incident workflow.
type State string

const (
	StateReceived        State = "received"
	StateClassified      State = "classified"
	StateAckAttempted    State = "ack_attempted"
	StateAcknowledged    State = "acknowledged"
	StateAckSkipped      State = "ack_skipped"
	StateTicketAttempted State = "ticket_attempted"
	StateTicketed        State = "ticketed"
	StateTicketFailed    State = "ticket_failed"
	StateTicketSkipped   State = "ticket_skipped"
	StateDone            State = "done"
)

// maxSummaryLen bounds the ticket summary line (Jira rejects longer ones).
const maxSummaryLen = 254

// Lifecycle sequences one incident through classification,
// acknowledgement, and escalation. No step failure is ever fatal: every
// failure is recorded as a processing note and the machine advances, so
// one incident's trouble can never block its siblings.
type Lifecycle struct {
	table     *config.RuleTable
	engine    *classify.Engine
	notifier  mailbox.Notifier
	ticketer  ticket.System
	agentName string
	jiraCfg   config.JiraConfig
	log       *slog.Logger
}

// NewLifecycle wires a Lifecycle. notifier and ticketer may be nil or
// unconfigured; the corresponding steps are then skipped with a note.
func NewLifecycle(table *config.RuleTable, engine *classify.Engine, notifier mailbox.Notifier,
	ticketer ticket.System, agentName string, jiraCfg config.JiraConfig, log *slog.Logger) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{
		table:     table,
		engine:    engine,
		notifier:  notifier,
		ticketer:  ticketer,
		agentName: agentName,
		jiraCfg:   jiraCfg,
		log:       log,
	}
}

// Run drives inc from Received to Done and returns the terminal state
// (always StateDone).
func (l *Lifecycle) Run(ctx context.Context, inc *models.Incident) State {
	l.log.Info("lifecycle: processing incident", "incident_id", inc.ID, "subject", inc.Subject)
	inc.AddNote(fmt.Sprintf("Agent '%s' received and started processing.", l.agentName))

	state := StateReceived
	for state != StateDone {
		switch state {
		case StateReceived:
			state = l.classifyStep(inc)
		case StateClassified:
			state = l.acknowledgeStep(ctx, inc)
		case StateAcknowledged, StateAckSkipped:
			state = l.escalateStep(ctx, inc)
		case StateTicketed, StateTicketFailed, StateTicketSkipped:
			state = l.finish(inc)
		default:
			// Unknown state would loop forever; close out defensively.
			state = l.finish(inc)
		}
	}
	return state
}

// classifyStep assigns priority then team. It cannot fail: the engine
// falls back to defaults when nothing matches.
func (l *Lifecycle) classifyStep(inc *models.Incident) State {
	inc.Priority = l.engine.ClassifyPriority(inc)
	inc.AssignedTeam, inc.AssignedTeamEmail = l.engine.AssignTeam(inc)
	return StateClassified
}

// acknowledgeStep sends the acknowledgement mail to the assigned team.
// Transport failure is recorded and processing continues.
func (l *Lifecycle) acknowledgeStep(ctx context.Context, inc *models.Incident) State {
	if l.notifier == nil || !l.notifier.IsConfigured() {
		inc.AddNote("Acknowledgement skipped: notification sender not configured.")
		l.log.Warn("lifecycle: ack skipped, notifier unconfigured", "incident_id", inc.ID)
		return StateAckSkipped
	}
	if inc.AssignedTeamEmail == "" {
		inc.AddNote("Acknowledgement skipped: no team contact address was resolved.")
		l.log.Warn("lifecycle: ack skipped, no team address", "incident_id", inc.ID)
		return StateAckSkipped
	}

	subject := fmt.Sprintf("RE: %s [Incident ACK - ID: %s]", inc.Subject, inc.ID)
	if err := l.notifier.SendAcknowledgement(ctx, inc.AssignedTeamEmail, subject,
		l.ackBody(inc), threadingID(inc)); err != nil {
		inc.AddNote(fmt.Sprintf("Failed to send acknowledgement email: %v", err))
		l.log.Error("lifecycle: ack send failed", "incident_id", inc.ID, "recipient", inc.AssignedTeamEmail, "error", err)
		return StateAckSkipped
	}

	inc.IsAcknowledged = true
	inc.AddNote(fmt.Sprintf("Acknowledgement email sent to %s.", inc.AssignedTeamEmail))
	l.log.Info("lifecycle: acknowledgement sent", "incident_id", inc.ID, "recipient", inc.AssignedTeamEmail)
	return StateAcknowledged
}

// escalateStep creates a ticket when the incident sits at the top of the
// severity ladder; everything else skips straight through.
func (l *Lifecycle) escalateStep(ctx context.Context, inc *models.Incident) State {
	if inc.Priority != l.table.Top() {
		return StateTicketSkipped
	}

	if l.ticketer == nil || !l.ticketer.Available(ctx) {
		inc.AddNote("Ticket creation skipped: ticketing system is not available.")
		l.log.Warn("lifecycle: ticketing unavailable for top-severity incident", "incident_id", inc.ID)
		return StateTicketSkipped
	}

	key, err := l.ticketer.CreateTicket(ctx, ticket.CreateRequest{
		ProjectKey:  l.jiraCfg.ProjectKey,
		IssueType:   l.jiraCfg.IssueType,
		Summary:     ticketSummary(inc),
		Description: l.ticketDescription(inc),
	})
	if err != nil {
		inc.AddNote(fmt.Sprintf("Failed to create ticket: %v", err))
		l.log.Error("lifecycle: ticket creation failed", "incident_id", inc.ID, "error", err)
		return StateTicketFailed
	}

	inc.TicketKey = key
	inc.AddNote(fmt.Sprintf("Ticket %s created successfully.", key))
	l.log.Info("lifecycle: ticket created", "incident_id", inc.ID, "ticket_key", key)
	return StateTicketed
}

// finish appends the terminal summary note.
func (l *Lifecycle) finish(inc *models.Incident) State {
	key := inc.TicketKey
	if key == "" {
		key = "none"
	}
	inc.AddNote(fmt.Sprintf("Processing finished: priority=%s, team=%s, ticket=%s, acknowledged=%t.",
		inc.Priority, inc.AssignedTeam, key, inc.IsAcknowledged))
	l.log.Info("lifecycle: incident done",
		"incident_id", inc.ID,
		"priority", inc.Priority,
		"team", inc.AssignedTeam,
		"ticket_key", inc.TicketKey,
		"acknowledged", inc.IsAcknowledged,
	)
	return StateDone
}

// ackBody builds the acknowledgement mail body.
func (l *Lifecycle) ackBody(inc *models.Incident) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\n")
	fmt.Fprintf(&b, "This is an automated message from %s.\n", l.agentName)
	fmt.Fprintf(&b, "We have received an incident report titled: '%s'.\n\n", inc.Subject)
	fmt.Fprintf(&b, "Initial Assessment:\n")
	fmt.Fprintf(&b, "- Incident Source ID: %s\n", inc.ID)
	fmt.Fprintf(&b, "- Assigned Priority: %s\n", inc.Priority)
	fmt.Fprintf(&b, "- Assigned Team: %s\n", inc.AssignedTeam)
	if inc.TicketKey != "" && l.jiraCfg.URL != "" {
		fmt.Fprintf(&b, "- Ticket: %s (%s/browse/%s)\n",
			inc.TicketKey, strings.TrimRight(l.jiraCfg.URL, "/"), inc.TicketKey)
	}
	fmt.Fprintf(&b, "\nThis incident is being processed. You will receive further updates from the assigned team.\n\n")
	fmt.Fprintf(&b, "Regards,\n%s", l.agentName)
	return b.String()
}

// ticketDescription builds the ticket body, including the full audit trail
// accumulated so far.
func (l *Lifecycle) ticketDescription(inc *models.Incident) string {
	body := inc.Body
	if body == "" {
		body = "(No body content provided)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Automated incident report from: %s\n", l.agentName)
	fmt.Fprintf(&b, "Source System: %s\n", inc.Source)
	fmt.Fprintf(&b, "Source Incident ID: %s\n", inc.ID)
	fmt.Fprintf(&b, "Detected Priority: %s\n", inc.Priority)
	fmt.Fprintf(&b, "Auto-Assigned Team: %s\n", inc.AssignedTeam)
	fmt.Fprintf(&b, "\nOriginal Subject:\n%s\n", inc.Subject)
	fmt.Fprintf(&b, "\nOriginal Body:\n--------------------\n%s\n--------------------\n", body)
	fmt.Fprintf(&b, "\nAgent Processing Notes:\n")
	for _, note := range inc.ProcessingNotes {
		fmt.Fprintf(&b, "- %s\n", note)
	}
	return b.String()
}

// ticketSummary builds the summary line, truncated to Jira's limit.
func ticketSummary(inc *models.Incident) string {
	summary := fmt.Sprintf("%s Incident: %s", inc.Priority, inc.Subject)
	runes := []rune(summary)
	if len(runes) > maxSummaryLen {
		summary = string(runes[:maxSummaryLen-3]) + "..."
	}
	return summary
}

// threadingID returns the Message-ID form of the incident id when the
// incident came from mail, so the acknowledgement threads as a reply.
func threadingID(inc *models.Incident) string {
	if inc.Source != models.SourceEmail || strings.HasPrefix(inc.ID, "imap-uid-") {
		return ""
	}
	return "<" + inc.ID + ">"
}
