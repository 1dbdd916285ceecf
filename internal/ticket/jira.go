package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"github.com/oncallops/mailtriage/internal/config"
)

// JiraSystem creates escalation tickets in a Jira project over the REST
// API with basic auth. The client is built eagerly but connectivity is
// only verified by Available.
type JiraSystem struct {
	cfg    config.JiraConfig
	client *jira.Client
	log    *slog.Logger
}

// NewJira builds a JiraSystem from cfg. A nil client (missing URL or
// credentials) is a valid state: Available then reports false and the
// lifecycle skips ticketing with a note.
func NewJira(cfg config.JiraConfig, log *slog.Logger) *JiraSystem {
	if log == nil {
		log = slog.Default()
	}
	s := &JiraSystem{cfg: cfg, log: log}

	if cfg.URL == "" || cfg.Username == "" || cfg.APIToken == "" {
		log.Warn("jira: url, username, or api token not configured — ticketing disabled")
		return s
	}

	tp := jira.BasicAuthTransport{Username: cfg.Username, Password: cfg.APIToken}
	client, err := jira.NewClient(tp.Client(), strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		log.Error("jira: building client", "url", cfg.URL, "error", err)
		return s
	}
	s.client = client
	return s
}

// Available reports whether the Jira client is configured and the server
// answers a lightweight request.
func (s *JiraSystem) Available(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	if _, _, err := s.client.Project.GetListWithContext(ctx); err != nil {
		s.log.Warn("jira: availability check failed", "url", s.cfg.URL, "error", err)
		return false
	}
	return true
}

// CreateTicket creates one issue and returns its key.
func (s *JiraSystem) CreateTicket(ctx context.Context, req CreateRequest) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("jira: client not configured")
	}

	issue := &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: req.ProjectKey},
			Type:        jira.IssueType{Name: req.IssueType},
			Summary:     req.Summary,
			Description: req.Description,
		},
	}

	created, resp, err := s.client.Issue.CreateWithContext(ctx, issue)
	if err != nil {
		// jira.NewJiraError pulls the API's field errors out of the response body.
		return "", fmt.Errorf("jira: creating issue in %s: %w", req.ProjectKey, jira.NewJiraError(resp, err))
	}
	s.log.Info("jira: ticket created", "key", created.Key, "project", req.ProjectKey)
	return created.Key, nil
}
