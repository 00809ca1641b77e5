package config

import (
	"os"
	"testing"
)

func chdirToTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestLoadConfig_RequiresSiteURL(t *testing.T) {
	chdirToTempDir(t)
	t.Setenv("SPBATCH_SITE_URL", "")
	t.Setenv("SPBATCH_USERNAME", "u")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected an error when SPBATCH_SITE_URL is missing")
	}
}

func TestLoadConfig_RequiresUsernameOrClientID(t *testing.T) {
	chdirToTempDir(t)
	t.Setenv("SPBATCH_SITE_URL", "https://contoso.sharepoint.com/sites/team")
	t.Setenv("SPBATCH_USERNAME", "")
	t.Setenv("SPBATCH_CLIENT_ID", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected an error when neither username nor client id is set")
	}
}

func TestLoadConfig_DefaultsGraphBaseURL(t *testing.T) {
	chdirToTempDir(t)
	t.Setenv("SPBATCH_SITE_URL", "https://contoso.sharepoint.com/sites/team")
	t.Setenv("SPBATCH_USERNAME", "u")
	t.Setenv("SPBATCH_GRAPH_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GraphBaseURL != "https://graph.microsoft.com/v1.0" {
		t.Errorf("expected default Graph base URL, got %s", cfg.GraphBaseURL)
	}
}

func TestLoadConfig_AcceptsClientCredentialsWithoutUsername(t *testing.T) {
	chdirToTempDir(t)
	t.Setenv("SPBATCH_SITE_URL", "https://contoso.sharepoint.com/sites/team")
	t.Setenv("SPBATCH_USERNAME", "")
	t.Setenv("SPBATCH_CLIENT_ID", "client-id")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClientID != "client-id" {
		t.Errorf("expected ClientID to be set, got %s", cfg.ClientID)
	}
}
