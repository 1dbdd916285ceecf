package classify

import (
	"reflect"
	"testing"

	"github.com/oncallops/mailtriage/internal/config"
	"github.com/oncallops/mailtriage/models"
)

func testTable(t *testing.T) *config.RuleTable {
	t.Helper()
	table, err := config.ParseRules([]byte(`
priorities:
  - level: P1
    keywords: [urgent, outage]
  - level: P2
    keywords: [error, degraded]
  - level: P3
    keywords: [slow]
  - level: P4
    keywords: [minor]
teams:
  - name: NetworkTeam
    keywords: [network, vpn]
    email: network-team@example.com
  - name: DatabaseTeam
    keywords: [db, database]
    email: db-team@example.com
  - name: GhostTeam
    keywords: [ghost]
default_team:
  name: SupportTeam
  email: support@example.com
`))
	if err != nil {
		t.Fatalf("parsing test table: %v", err)
	}
	return table
}

func testIncident(t *testing.T, subject, body string) *models.Incident {
	t.Helper()
	inc, err := models.NewIncident("test-1", models.SourceEmail, subject, "")
	if err != nil {
		t.Fatalf("building incident: %v", err)
	}
	inc.Body = body
	return inc
}

func TestClassifyPriorityFirstMatchWins(t *testing.T) {
	e := NewEngine(testTable(t), nil)
	inc := testIncident(t, "URGENT: Database outage", "production db is down")

	if got := e.ClassifyPriority(inc); got != "P1" {
		t.Fatalf("expected P1, got %s", got)
	}
	if len(inc.ProcessingNotes) != 1 {
		t.Fatalf("expected exactly one note, got %v", inc.ProcessingNotes)
	}
	want := "Priority classified as P1 due to keyword: 'urgent'."
	if inc.ProcessingNotes[0] != want {
		t.Fatalf("expected note %q, got %q", want, inc.ProcessingNotes[0])
	}
}

func TestClassifyPriorityHigherSeverityWinsRegardlessOfPosition(t *testing.T) {
	e := NewEngine(testTable(t), nil)
	// The P2 keyword appears first in the text; P1 must still win because
	// levels are scanned in severity order.
	inc := testIncident(t, "error creeping in", "then a full outage happened")
	if got := e.ClassifyPriority(inc); got != "P1" {
		t.Fatalf("expected P1, got %s", got)
	}
}

func TestClassifyPriorityDefaultsToMiddleLevel(t *testing.T) {
	e := NewEngine(testTable(t), nil)
	inc := testIncident(t, "minor UI glitch but nothing else", "")
	// "minor" matches P4; build a genuinely matchless incident too.
	if got := e.ClassifyPriority(inc); got != "P4" {
		t.Fatalf("expected P4, got %s", got)
	}

	none := testIncident(t, "hello there", "general kenobi")
	if got := e.ClassifyPriority(none); got != "P3" {
		t.Fatalf("expected default P3, got %s", got)
	}
	want := "No specific priority keywords found. Defaulting priority to P3."
	if none.ProcessingNotes[0] != want {
		t.Fatalf("expected note %q, got %q", want, none.ProcessingNotes[0])
	}
}

func TestKeywordMatchIsCaseInsensitiveSubstring(t *testing.T) {
	e := NewEngine(testTable(t), nil)

	inc := testIncident(t, "Platform note", "Database down")
	name, email := e.AssignTeam(inc)
	// "db" is a substring of "database down" after lowercasing.
	if name != "DatabaseTeam" || email != "db-team@example.com" {
		t.Fatalf("expected DatabaseTeam, got %s <%s>", name, email)
	}

	// Negative control: nothing in the text contains any network keyword.
	miss := testIncident(t, "printer jam", "paper stuck again")
	name, email = e.AssignTeam(miss)
	if name != "SupportTeam" || email != "support@example.com" {
		t.Fatalf("expected default SupportTeam, got %s <%s>", name, email)
	}
}

func TestAssignTeamWithoutAddressFallsBackToDefault(t *testing.T) {
	e := NewEngine(testTable(t), nil)
	inc := testIncident(t, "ghost in the machine", "")

	name, email := e.AssignTeam(inc)
	if name != "SupportTeam" || email != "support@example.com" {
		t.Fatalf("expected default team fallback, got %s <%s>", name, email)
	}
	if len(inc.ProcessingNotes) != 1 {
		t.Fatalf("expected one fallback note, got %v", inc.ProcessingNotes)
	}
	note := inc.ProcessingNotes[0]
	if want := "Keyword 'ghost' matched team 'GhostTeam', but no contact address is configured. Assigning to default team instead."; note != want {
		t.Fatalf("expected note %q, got %q", want, note)
	}
}

func TestClassificationIsDeterministic(t *testing.T) {
	e := NewEngine(testTable(t), nil)

	run := func() *models.Incident {
		inc := testIncident(t, "URGENT: vpn degraded", "network and db trouble")
		inc.Priority = e.ClassifyPriority(inc)
		inc.AssignedTeam, inc.AssignedTeamEmail = e.AssignTeam(inc)
		return inc
	}

	a, b := run(), run()
	if a.Priority != b.Priority || a.AssignedTeam != b.AssignedTeam {
		t.Fatalf("classification not deterministic: %+v vs %+v", a, b)
	}
	if !reflect.DeepEqual(a.ProcessingNotes, b.ProcessingNotes) {
		t.Fatalf("notes differ between identical runs:\n%v\n%v", a.ProcessingNotes, b.ProcessingNotes)
	}
}
