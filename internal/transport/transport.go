// Package transport provides resty-backed spbatch.Transport implementations
// for the two API families, wired through the rate limiter and retry
// policy in internal/httpx.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Krive/spbatch/internal/httpx/errclass"
	"github.com/Krive/spbatch/internal/httpx/ratelimit"
	"github.com/Krive/spbatch/internal/httpx/retry"
	"github.com/Krive/spbatch/pkg/spbatch"
)

// HTTPTransport is a resty-backed spbatch.Transport, rate-limited and
// retried for a single API family. Construct one for FamilyREST and one
// for FamilyGraph; both can share one *ratelimit.Limiter, which keeps an
// independent bucket per Family.
type HTTPTransport struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
	family  ratelimit.Family
	retry   retry.Config
}

// NewRESTTransport builds a transport for the SharePoint REST family.
func NewRESTTransport(limiter *ratelimit.Limiter) *HTTPTransport {
	return newTransport(limiter, ratelimit.FamilyREST)
}

// NewGraphTransport builds a transport for the Microsoft Graph family.
func NewGraphTransport(limiter *ratelimit.Limiter) *HTTPTransport {
	return newTransport(limiter, ratelimit.FamilyGraph)
}

func newTransport(limiter *ratelimit.Limiter, family ratelimit.Family) *HTTPTransport {
	c := resty.New()
	c.SetTimeout(60 * time.Second)
	return &HTTPTransport{
		client:  c,
		limiter: limiter,
		family:  family,
		retry:   retry.BatchTransportRetryConfig(),
	}
}

// Send implements spbatch.Transport: rate-limit, then retry-wrap a single
// resty POST of the already-framed batch body.
func (t *HTTPTransport) Send(ctx context.Context, req *spbatch.OutboundRequest, body string) (int, map[string]string, string, error) {
	if err := t.limiter.Wait(ctx, t.family); err != nil {
		return 0, nil, "", fmt.Errorf("transport: rate limit wait: %w", err)
	}

	var status int
	var headers map[string]string
	var respBody string

	err := retry.Do(ctx, t.retry, func() error {
		r := t.client.R().SetContext(ctx).SetBody(body)
		for k, v := range req.Header {
			r.SetHeader(k, v)
		}

		resp, err := r.Execute(req.Method, req.URL)
		if err != nil {
			return &errclass.NetworkError{Err: err}
		}

		status = resp.StatusCode()
		respBody = string(resp.Body())
		headers = make(map[string]string, len(resp.Header()))
		for k := range resp.Header() {
			headers[k] = resp.Header().Get(k)
		}

		if status/100 != 2 {
			return errclass.NewStatusError(status, respBody)
		}
		return nil
	})
	if err != nil {
		var statusErr *errclass.StatusError
		if errors.As(err, &statusErr) {
			// The envelope itself answered (possibly after exhausting
			// retries on a retryable status) — hand the final status back
			// to the dispatcher rather than treating it as a transport
			// failure.
			return statusErr.StatusCode, headers, statusErr.Body, nil
		}
		return 0, nil, "", err
	}

	return status, headers, respBody, nil
}
