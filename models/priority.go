package models

// Priority represents the urgency tier assigned to an incident.
// The canonical levels are P1 (most severe) through P4; the effective
// ordering for classification comes from the rule table, not from these
// constants.
type Priority string

const (
	PriorityP1      Priority = "P1"
	PriorityP2      Priority = "P2"
	PriorityP3      Priority = "P3"
	PriorityP4      Priority = "P4"
	PriorityUnknown Priority = ""
)

// Weight returns a numeric weight for sorting (higher = more severe).
func (p Priority) Weight() int {
	switch p {
	case PriorityP1:
		return 4
	case PriorityP2:
		return 3
	case PriorityP3:
		return 2
	case PriorityP4:
		return 1
	default:
		return 0
	}
}

func (p Priority) String() string {
	return string(p)
}
