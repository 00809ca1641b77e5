package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Krive/spbatch/pkg/spbatch"
)

// ClientCredentials implements spbatch.AuthenticationProvider with the AAD
// v2.0 client-credentials flow. One instance serves both the REST and
// GRAPH families: the token scope is derived per call from targetURI, since
// SharePoint REST and Graph are different AAD resources, and tokens for
// each are cached independently under cachedToken.
type ClientCredentials struct {
	tenantID     string
	clientID     string
	clientSecret string
	storage      TokenStorage

	mu     sync.Mutex
	tokens map[string]*cachedToken
}

type cachedToken struct {
	token     *OAuthToken
	expiresAt time.Time
}

// NewClientCredentials creates a ClientCredentials provider backed by
// file-based token caching.
func NewClientCredentials(tenantID, clientID, clientSecret string) *ClientCredentials {
	return &ClientCredentials{
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		storage:      NewFileTokenStorage(""),
		tokens:       make(map[string]*cachedToken),
	}
}

func (c *ClientCredentials) Authenticate(ctx context.Context, targetURI string, req *spbatch.OutboundRequest) error {
	scope := scopeFor(targetURI)

	c.mu.Lock()
	defer c.mu.Unlock()

	tok, ok := c.tokens[scope]
	if !ok || tok.expired() {
		fresh, err := c.fetchToken(ctx, scope)
		if err != nil {
			return fmt.Errorf("auth: fetching token for scope %s: %w", scope, err)
		}
		tok = fresh
		c.tokens[scope] = tok
	}

	req.SetHeader("Authorization", fmt.Sprintf("%s %s", tok.token.TokenType, tok.token.AccessToken))
	return nil
}

func (t *cachedToken) expired() bool {
	return t == nil || time.Now().After(t.expiresAt.Add(-10*time.Second))
}

// scopeFor picks the AAD resource scope for a target URI: SharePoint REST
// calls need the site's own resource, Graph calls need Graph's default
// scope.
func scopeFor(targetURI string) string {
	if strings.Contains(targetURI, ".sharepoint.com") {
		root := targetURI
		if idx := strings.Index(root, "/_api/"); idx >= 0 {
			root = root[:idx]
		}
		return root + "/.default"
	}
	return "https://graph.microsoft.com/.default"
}

func (c *ClientCredentials) fetchToken(ctx context.Context, scope string) (*cachedToken, error) {
	cacheKey := fmt.Sprintf("cc_%s_%s_%s", c.tenantID, c.clientID, scope)

	if c.storage != nil {
		if stored, err := c.storage.Load(cacheKey); err == nil && stored != nil {
			t := &cachedToken{token: stored, expiresAt: time.Now().Add(time.Duration(stored.ExpiresIn) * time.Second)}
			if !t.expired() {
				return t, nil
			}
		}
	}

	client := resty.New()
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.tenantID)

	resp, err := client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"scope":         scope,
		}).
		Post(tokenURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("token endpoint returned %s: %s", resp.Status(), string(resp.Body()))
	}

	var token OAuthToken
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return nil, fmt.Errorf("unmarshaling token response: %w", err)
	}

	if c.storage != nil {
		_ = c.storage.Save(cacheKey, &token)
	}

	return &cachedToken{token: &token, expiresAt: time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)}, nil
}
