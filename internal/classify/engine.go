// Package classify implements the deterministic keyword rule engine that
// assigns a priority level and an owning team to each incident.
package classify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/oncallops/mailtriage/internal/config"
	"github.com/oncallops/mailtriage/models"
)

// Engine scans incident text against an immutable rule table. Given the
// same table and the same subject/body, every call produces identical
// results and identical notes: the table's configured order is the scan
// order, and the first substring match wins.
type Engine struct {
	table *config.RuleTable
	log   *slog.Logger
}

// NewEngine creates an Engine over table.
func NewEngine(table *config.RuleTable, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{table: table, log: log}
}

// ClassifyPriority determines the incident's priority from keywords in its
// subject or body. Levels are checked most severe first; when nothing
// matches the table's middle level is assigned.
func (e *Engine) ClassifyPriority(inc *models.Incident) models.Priority {
	text := scanText(inc)

	for _, rule := range e.table.Priorities {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				note := fmt.Sprintf("Priority classified as %s due to keyword: '%s'.", rule.Level, kw)
				inc.AddNote(note)
				e.log.Info("classify: priority assigned", "incident_id", inc.ID, "priority", rule.Level, "keyword", kw)
				return rule.Level
			}
		}
	}

	def := e.table.DefaultPriority()
	inc.AddNote(fmt.Sprintf("No specific priority keywords found. Defaulting priority to %s.", def))
	e.log.Info("classify: no priority keyword matched, using default", "incident_id", inc.ID, "priority", def)
	return def
}

// AssignTeam routes the incident to a team by keyword match. The first
// matching team wins; if that team has no contact address the incident
// falls through to the default team without scanning further teams.
func (e *Engine) AssignTeam(inc *models.Incident) (string, string) {
	text := scanText(inc)

	for _, team := range e.table.Teams {
		for _, kw := range team.Keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			if team.Email == "" {
				note := fmt.Sprintf("Keyword '%s' matched team '%s', but no contact address is configured. Assigning to default team instead.", kw, team.Name)
				inc.AddNote(note)
				e.log.Warn("classify: matched team has no address", "incident_id", inc.ID, "team", team.Name, "keyword", kw)
				return e.table.Default.Name, e.table.Default.Email
			}
			note := fmt.Sprintf("Assigned to team '%s' based on keyword: '%s'. Email: %s", team.Name, kw, team.Email)
			inc.AddNote(note)
			e.log.Info("classify: team assigned", "incident_id", inc.ID, "team", team.Name, "keyword", kw)
			return team.Name, team.Email
		}
	}

	inc.AddNote(fmt.Sprintf("No team keywords matched. Assigning to default team: Name='%s', Email='%s'.",
		e.table.Default.Name, e.table.Default.Email))
	e.log.Info("classify: no team keyword matched, using default", "incident_id", inc.ID, "team", e.table.Default.Name)
	return e.table.Default.Name, e.table.Default.Email
}

// scanText builds the lowercase subject+body haystack scanned by both
// classification passes.
func scanText(inc *models.Incident) string {
	return strings.ToLower(inc.Subject + " " + inc.Body)
}
