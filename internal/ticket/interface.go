// Package ticket abstracts the external ticketing system used to escalate
// top-severity incidents.
package ticket

import "context"

// CreateRequest describes one escalation ticket.
type CreateRequest struct {
	ProjectKey  string
	IssueType   string
	Summary     string
	Description string
}

// System is the ticketing collaborator. The lifecycle checks Available
// before attempting creation and records every failure as an incident
// note; errors never propagate past the lifecycle boundary.
type System interface {
	// Available reports whether the system is configured and reachable.
	Available(ctx context.Context) bool

	// CreateTicket creates one ticket and returns its key (e.g. "ITSM-123").
	CreateTicket(ctx context.Context, req CreateRequest) (string, error)
}
