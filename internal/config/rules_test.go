package config

import (
	"errors"
	"testing"

	"github.com/oncallops/mailtriage/models"
)

const testRulesYAML = `
priorities:
  - level: P1
    keywords: [CRITICAL, " urgent ", outage]
  - level: P2
    keywords: [high, error]
  - level: P3
    keywords: [medium]
  - level: P4
    keywords: [low]
teams:
  - name: NetworkTeam
    keywords: [Network, VPN]
    email: network-team@example.com
  - name: DatabaseTeam
    keywords: [db, database]
    email: db-team@example.com
default_team:
  name: SupportTeam
  email: support@example.com
`

func TestParseRulesPreservesOrderAndLowercases(t *testing.T) {
	table, err := ParseRules([]byte(testRulesYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantLevels := []models.Priority{"P1", "P2", "P3", "P4"}
	for i, want := range wantLevels {
		if table.Priorities[i].Level != want {
			t.Fatalf("priority %d: expected %s, got %s", i, want, table.Priorities[i].Level)
		}
	}

	p1 := table.Priorities[0].Keywords
	if p1[0] != "critical" || p1[1] != "urgent" || p1[2] != "outage" {
		t.Fatalf("P1 keywords not lowercased/trimmed: %v", p1)
	}
	if table.Teams[0].Keywords[0] != "network" {
		t.Fatalf("team keywords not lowercased: %v", table.Teams[0].Keywords)
	}
}

func TestRuleTableTopAndDefaultPriority(t *testing.T) {
	table, err := ParseRules([]byte(testRulesYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Top() != "P1" {
		t.Fatalf("expected top priority P1, got %s", table.Top())
	}
	// Middle of the four-level ladder.
	if table.DefaultPriority() != "P3" {
		t.Fatalf("expected default priority P3, got %s", table.DefaultPriority())
	}
}

func TestTeamEmailLookupIsCaseInsensitive(t *testing.T) {
	table, err := ParseRules([]byte(testRulesYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	email, ok := table.TeamEmail("databaseteam")
	if !ok || email != "db-team@example.com" {
		t.Fatalf("expected db-team address, got %q (ok=%t)", email, ok)
	}
	if _, ok := table.TeamEmail("NoSuchTeam"); ok {
		t.Fatal("expected lookup miss for unknown team")
	}
}

func TestParseRulesRejectsEmptyTable(t *testing.T) {
	_, err := ParseRules([]byte("teams: []\n"))
	if !errors.Is(err, ErrMissingRules) {
		t.Fatalf("expected ErrMissingRules, got %v", err)
	}
}

func TestParseRulesRejectsDuplicateLevels(t *testing.T) {
	_, err := ParseRules([]byte(`
priorities:
  - level: P1
    keywords: [a]
  - level: P1
    keywords: [b]
`))
	if err == nil {
		t.Fatal("expected error for duplicate priority level")
	}
}

func TestDefaultRulesScaffoldParses(t *testing.T) {
	table, err := ParseRules([]byte(DefaultRulesYAML))
	if err != nil {
		t.Fatalf("default rules scaffold does not parse: %v", err)
	}
	if table.Top() != "P1" || table.Default.Name != "SupportTeam" {
		t.Fatalf("unexpected scaffold contents: top=%s default=%s", table.Top(), table.Default.Name)
	}
}
