package auth

import (
	"context"
	"encoding/base64"

	"github.com/Krive/spbatch/pkg/spbatch"
)

// BasicAuth implements spbatch.AuthenticationProvider with a static
// username/password pair, suitable for SharePoint REST endpoints
// configured for basic or app-password auth.
type BasicAuth struct {
	username string
	password string
}

func NewBasicAuth(username, password string) *BasicAuth {
	return &BasicAuth{username: username, password: password}
}

func (b *BasicAuth) Authenticate(_ context.Context, _ string, req *spbatch.OutboundRequest) error {
	token := base64.StdEncoding.EncodeToString([]byte(b.username + ":" + b.password))
	req.SetHeader("Authorization", "Basic "+token)
	return nil
}
