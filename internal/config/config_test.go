package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.SnapshotCron != "0 17 * * FRI" || cfg.CleanupCron != "0 2 * * *" {
		t.Errorf("cron defaults = %q / %q", cfg.SnapshotCron, cfg.CleanupCron)
	}
	if cfg.RetentionDays != 30 || cfg.FreshnessHours != 24 {
		t.Errorf("retention/freshness = %d / %d", cfg.RetentionDays, cfg.FreshnessHours)
	}
	if !cfg.JiraMock {
		t.Error("JiraMock should default on")
	}
	if cfg.TicketCacheTTL != 5*time.Minute {
		t.Errorf("TicketCacheTTL = %v", cfg.TicketCacheTTL)
	}
}

func TestLoadJiraAuthFromEnv(t *testing.T) {
	t.Setenv("JIRA_PAT", "token-123")
	t.Setenv("JIRA_BASIC_AUTH", "dXNlcjpwYXNz")
	t.Setenv("JIRA_MOCK", "false")
	cfg := Load()
	if cfg.JiraPAT != "token-123" {
		t.Errorf("JiraPAT = %q", cfg.JiraPAT)
	}
	if cfg.JiraBasicAuth != "dXNlcjpwYXNz" {
		t.Errorf("JiraBasicAuth = %q", cfg.JiraBasicAuth)
	}
	if cfg.JiraMock {
		t.Error("JIRA_MOCK=false not honored")
	}
}
