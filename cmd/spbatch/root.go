package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Krive/spbatch/internal/auth"
	"github.com/Krive/spbatch/internal/httpx/ratelimit"
	"github.com/Krive/spbatch/internal/model"
	"github.com/Krive/spbatch/internal/transport"
	"github.com/Krive/spbatch/pkg/spbatch"
)

var rootCmd = &cobra.Command{
	Use:   "spbatch",
	Short: "spbatch: a client-side batching engine for SharePoint REST and Microsoft Graph",
	Long: `spbatch dispatches queued SharePoint REST and Microsoft Graph operations as
multipart/mixed and JSON $batch calls, splitting or falling back between the
two families as needed.

Visit https://github.com/Krive/spbatch for documentation and examples.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
}

var (
	siteURL      string
	username     string
	password     string
	tenantID     string
	clientID     string
	clientSecret string
	graphBaseURL string
	verbose      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&siteURL, "site", "", "SharePoint site URL (or set SPBATCH_SITE_URL)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Username for REST basic auth (or set SPBATCH_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Password for REST basic auth (or set SPBATCH_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant-id", "", "AAD tenant ID for GRAPH client-credentials auth (or set SPBATCH_TENANT_ID)")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "AAD client ID (or set SPBATCH_CLIENT_ID)")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "AAD client secret (or set SPBATCH_CLIENT_SECRET)")
	rootCmd.PersistentFlags().StringVar(&graphBaseURL, "graph-base-url", "", "Graph $batch base, e.g. https://graph.microsoft.com/beta (or set SPBATCH_GRAPH_BASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func getCredential(flagValue, envVar string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envVar)
}

// newClient builds a spbatch.Client with a single authentication provider
// shared by both families: AAD client-credentials when a tenant/client
// id/secret triple is available, otherwise basic auth when a username and
// password are set.
func newClient() (*spbatch.Client, error) {
	site := getCredential(siteURL, "SPBATCH_SITE_URL")
	if site == "" {
		return nil, fmt.Errorf("a site URL is required (use --site or set SPBATCH_SITE_URL)")
	}
	user := getCredential(username, "SPBATCH_USERNAME")
	pass := getCredential(password, "SPBATCH_PASSWORD")
	tenant := getCredential(tenantID, "SPBATCH_TENANT_ID")
	cid := getCredential(clientID, "SPBATCH_CLIENT_ID")
	secret := getCredential(clientSecret, "SPBATCH_CLIENT_SECRET")
	graphBase := getCredential(graphBaseURL, "SPBATCH_GRAPH_BASE_URL")
	if graphBase == "" {
		graphBase = "https://graph.microsoft.com/v1.0"
	}

	var provider spbatch.AuthenticationProvider
	switch {
	case tenant != "" && cid != "" && secret != "":
		if verbose {
			fmt.Fprintf(os.Stderr, "Using AAD client-credentials auth (tenant %s)\n", tenant)
		}
		provider = auth.NewClientCredentials(tenant, cid, secret)
	case user != "" && pass != "":
		if verbose {
			fmt.Fprintf(os.Stderr, "Using basic auth (user %s)\n", user)
		}
		provider = auth.NewBasicAuth(user, pass)
	default:
		return nil, fmt.Errorf("no valid credentials found. Provide either:\n" +
			"  - AAD client credentials: --tenant-id, --client-id, --client-secret\n" +
			"  - Basic auth: --username and --password")
	}

	limiter := ratelimit.New(ratelimit.DefaultConfig())
	restTransport := transport.NewRESTTransport(limiter)
	graphTransport := transport.NewGraphTransport(limiter)

	return spbatch.NewClient(restTransport, graphTransport, provider, model.DefaultMapper{}, graphBase), nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
