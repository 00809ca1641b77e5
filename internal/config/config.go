package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the connection details for a single SharePoint tenant and
// its paired Microsoft Graph application registration.
type Config struct {
	SiteURL      string // e.g. https://contoso.sharepoint.com/sites/team
	Username     string // REST basic/app-password auth
	Password     string
	TenantID     string // AAD client-credentials auth, used for GRAPH
	ClientID     string
	ClientSecret string
	GraphBaseURL string // defaults to https://graph.microsoft.com/v1.0
}

// LoadConfig loads config from environment variables, optionally populated
// from a .env file in the working directory (non-fatal if missing).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		SiteURL:      os.Getenv("SPBATCH_SITE_URL"),
		Username:     os.Getenv("SPBATCH_USERNAME"),
		Password:     os.Getenv("SPBATCH_PASSWORD"),
		TenantID:     os.Getenv("SPBATCH_TENANT_ID"),
		ClientID:     os.Getenv("SPBATCH_CLIENT_ID"),
		ClientSecret: os.Getenv("SPBATCH_CLIENT_SECRET"),
		GraphBaseURL: os.Getenv("SPBATCH_GRAPH_BASE_URL"),
	}

	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = "https://graph.microsoft.com/v1.0"
	}

	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("missing required env var: SPBATCH_SITE_URL")
	}
	if cfg.Username == "" && cfg.ClientID == "" {
		return nil, fmt.Errorf("must provide either SPBATCH_USERNAME or SPBATCH_CLIENT_ID for authentication")
	}

	return cfg, nil
}
