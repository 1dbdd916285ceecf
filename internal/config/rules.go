package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oncallops/mailtriage/models"
	"go.yaml.in/yaml/v3"
)

// ErrMissingRules is returned when no usable rule table can be loaded.
// The agent cannot classify anything without one, so this aborts startup.
var ErrMissingRules = errors.New("keyword rule table is missing or empty")

// PriorityRule maps one priority level to its keyword set. Rules are
// scanned in file order, most severe first.
type PriorityRule struct {
	Level    models.Priority `yaml:"level"`
	Keywords []string        `yaml:"keywords"`
}

// TeamRule maps one team to its keyword set and contact address.
type TeamRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Email    string   `yaml:"email"`
}

// DefaultTeam is the fallback assignment when no team keyword matches.
type DefaultTeam struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// RuleTable is the immutable keyword classification table. The order of
// Priorities and Teams is the scan order and part of the table's contract:
// first match wins. Loaded once at startup and never mutated afterwards.
type RuleTable struct {
	Priorities []PriorityRule `yaml:"priorities"`
	Teams      []TeamRule     `yaml:"teams"`
	Default    DefaultTeam    `yaml:"default_team"`
}

// LoadRules reads and validates the rule table from a YAML file.
func LoadRules(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s not found", ErrMissingRules, path)
		}
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses and validates a rule table from raw YAML.
func ParseRules(data []byte) (*RuleTable, error) {
	var t RuleTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

// normalize lowercases all keywords and checks the table is usable.
func (t *RuleTable) normalize() error {
	if len(t.Priorities) == 0 {
		return fmt.Errorf("%w: no priority levels defined", ErrMissingRules)
	}
	seen := make(map[models.Priority]bool, len(t.Priorities))
	for i := range t.Priorities {
		p := &t.Priorities[i]
		if p.Level == "" {
			return fmt.Errorf("rules: priority entry %d has no level", i)
		}
		if seen[p.Level] {
			return fmt.Errorf("rules: duplicate priority level %q", p.Level)
		}
		seen[p.Level] = true
		p.Keywords = lowerKeywords(p.Keywords)
	}
	for i := range t.Teams {
		team := &t.Teams[i]
		if team.Name == "" {
			return fmt.Errorf("rules: team entry %d has no name", i)
		}
		team.Keywords = lowerKeywords(team.Keywords)
	}
	if t.Default.Name == "" {
		t.Default.Name = "DefaultTeam"
	}
	if t.Default.Email == "" {
		t.Default.Email = "support@example.com"
	}
	return nil
}

// Top returns the most severe priority level (first in scan order).
// Only incidents at this level are escalated to a ticket.
func (t *RuleTable) Top() models.Priority {
	return t.Priorities[0].Level
}

// DefaultPriority returns the level assigned when no keyword matches:
// the middle of the configured severity ladder.
func (t *RuleTable) DefaultPriority() models.Priority {
	return t.Priorities[len(t.Priorities)/2].Level
}

// TeamEmail looks up a team's contact address by name, case-insensitively.
func (t *RuleTable) TeamEmail(name string) (string, bool) {
	for i := range t.Teams {
		if strings.EqualFold(t.Teams[i].Name, name) && t.Teams[i].Email != "" {
			return t.Teams[i].Email, true
		}
	}
	if strings.EqualFold(t.Default.Name, name) {
		return t.Default.Email, true
	}
	return "", false
}

func lowerKeywords(keywords []string) []string {
	out := keywords[:0]
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// DefaultRulesYAML is the scaffold written by `mailtriage config init`.
const DefaultRulesYAML = `# mailtriage keyword rule table.
# Scan order matters: levels are checked top to bottom (most severe first)
# and the first matching keyword wins. Same for teams.
priorities:
  - level: P1
    keywords: [critical, urgent, outage, "production down", "security breach", "data loss"]
  - level: P2
    keywords: [high, error, failure, degraded, "not working"]
  - level: P3
    keywords: [medium, slow, intermittent, question]
  - level: P4
    keywords: [low, minor, cosmetic, request]

teams:
  - name: NetworkTeam
    keywords: [network, firewall, vpn, dns, router]
    email: network-team@example.com
  - name: DatabaseTeam
    keywords: [db, database, sql, replication]
    email: db-team@example.com
  - name: AppSupportTeam
    keywords: [application, app, login, ui, frontend]
    email: app-support@example.com

default_team:
  name: SupportTeam
  email: support@example.com
`
