package config

// Config is the root configuration structure for mailtriage.
// Serialised to ~/.mailtriage/config.json.
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent"   json:"agent"`
	Mailbox MailboxConfig `mapstructure:"mailbox" json:"mailbox"`
	SMTP    SMTPConfig    `mapstructure:"smtp"    json:"smtp"`
	Jira    JiraConfig    `mapstructure:"jira"    json:"jira"`
	Dedup   DedupConfig   `mapstructure:"dedup"   json:"dedup"`
	Rules   RulesConfig   `mapstructure:"rules"   json:"rules"`
}

// AgentConfig controls the triage loop.
type AgentConfig struct {
	// Name identifies the agent in acknowledgement mails and ticket bodies.
	Name string `mapstructure:"name" json:"name"`
	// CheckIntervalSeconds is the polling cadence of the daemon loop.
	CheckIntervalSeconds int `mapstructure:"check_interval_seconds" json:"check_interval_seconds"`
}

// MailboxConfig holds IMAP credentials for the inbound incident mailbox.
type MailboxConfig struct {
	Server   string `mapstructure:"server"   json:"server"`
	Port     int    `mapstructure:"port"     json:"port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	// Folder is the mailbox to poll (default: INBOX).
	Folder string `mapstructure:"folder" json:"folder"`
}

// SMTPConfig holds credentials for outbound acknowledgement mail.
type SMTPConfig struct {
	Server   string `mapstructure:"server"   json:"server"`
	Port     int    `mapstructure:"port"     json:"port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	// Sender is the agent's own outbound address. Inbound mail from this
	// address is filtered out to break self-processing loops.
	Sender string `mapstructure:"sender" json:"sender"`
	// UseTLS selects implicit TLS (port 465 style) instead of STARTTLS.
	UseTLS bool `mapstructure:"use_tls" json:"use_tls"`
}

// JiraConfig controls escalation-ticket creation for top-severity incidents.
type JiraConfig struct {
	URL      string `mapstructure:"url"       json:"url"`
	Username string `mapstructure:"username"  json:"username"`
	APIToken string `mapstructure:"api_token" json:"api_token"`
	// ProjectKey is the Jira project tickets are created in.
	ProjectKey string `mapstructure:"project_key" json:"project_key"`
	// IssueType is the issue type name used for escalation tickets.
	IssueType string `mapstructure:"issue_type" json:"issue_type"`
}

// DedupConfig selects the backing store for processed-message identifiers.
type DedupConfig struct {
	// Driver is "memory" (default), "sqlite", "mysql", or "redis".
	Driver string `mapstructure:"driver" json:"driver"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path" json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn" json:"dsn"`
	// RedisAddr / RedisPassword / RedisDB configure the redis backend.
	RedisAddr     string `mapstructure:"redis_addr"     json:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" json:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       json:"redis_db"`
}

// RulesConfig points at the keyword rule table file.
type RulesConfig struct {
	// Path is the rules YAML file (expanded at runtime).
	Path string `mapstructure:"path" json:"path"`
}
