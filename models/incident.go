package models

import "fmt"

// SourceEmail tags incidents that originated from the mailbox source.
// Additional sources (monitoring webhooks, APIs) would add their own tag.
const SourceEmail = "email"

// Incident is the canonical record for one reported problem, tracked
// through classification, acknowledgement, and escalation. It is created
// by the message normalizer, mutated in sequence by the classification
// engine and the lifecycle, and held in memory only for the duration of
// one batch cycle.
type Incident struct {
	// ID is a stable identifier: the e-mail Message-ID when present,
	// otherwise a synthesised identifier derived from the transport UID.
	// Assigned at creation, never changed.
	ID     string `json:"id"`
	Source string `json:"source"`

	// Subject and Body are the normalized plain-text fields the
	// classification engine scans. RawContent keeps the full original
	// payload for audit and ticket descriptions; it is never mutated.
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	RawContent string `json:"raw_content"`

	// Populated during processing.
	Priority          Priority `json:"priority,omitempty"`
	AssignedTeam      string   `json:"assigned_team,omitempty"`
	AssignedTeamEmail string   `json:"assigned_team_email,omitempty"`
	IsAcknowledged    bool     `json:"is_acknowledged"`
	TicketKey         string   `json:"ticket_key,omitempty"`

	// ProcessingNotes is the append-only audit trail. Every decision
	// point appends exactly one note; the slice never shrinks.
	ProcessingNotes []string `json:"processing_notes"`
}

// ValidationError reports an Incident constructed with missing required fields.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("incident: required field %q is empty", e.Field)
}

// NewIncident constructs an Incident, validating the required fields once at
// creation. All other fields start unset and are filled in by the pipeline.
func NewIncident(id, source, subject, rawContent string) (*Incident, error) {
	switch {
	case id == "":
		return nil, &ValidationError{Field: "id"}
	case source == "":
		return nil, &ValidationError{Field: "source"}
	case subject == "":
		return nil, &ValidationError{Field: "subject"}
	}
	return &Incident{
		ID:         id,
		Source:     source,
		Subject:    subject,
		RawContent: rawContent,
	}, nil
}

// AddNote appends one entry to the audit trail.
func (i *Incident) AddNote(note string) {
	i.ProcessingNotes = append(i.ProcessingNotes, note)
}
