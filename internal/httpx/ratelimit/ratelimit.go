// Package ratelimit provides per-endpoint-family token-bucket limiting for
// the REST and Graph transport adapters, built on golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Family distinguishes the two batch endpoint families for limiting
// purposes — SharePoint REST's /_api/$batch tends to tolerate a different
// sustained rate than Graph's /beta/$batch.
type Family string

const (
	FamilyREST  Family = "rest"
	FamilyGraph Family = "graph"
)

// Config holds requests-per-second and burst settings per family.
type Config struct {
	RESTRequestsPerSecond  float64
	RESTBurst              int
	GraphRequestsPerSecond float64
	GraphBurst             int
}

// DefaultConfig returns conservative defaults modeled after SharePoint
// Online's and Graph's documented throttling guidance.
func DefaultConfig() Config {
	return Config{
		RESTRequestsPerSecond:  5.0,
		RESTBurst:              10,
		GraphRequestsPerSecond: 4.0,
		GraphBurst:             8,
	}
}

// Limiter wraps one token bucket per family.
type Limiter struct {
	mu   sync.RWMutex
	rest  *rate.Limiter
	graph *rate.Limiter
}

func New(config Config) *Limiter {
	return &Limiter{
		rest:  rate.NewLimiter(rate.Limit(config.RESTRequestsPerSecond), config.RESTBurst),
		graph: rate.NewLimiter(rate.Limit(config.GraphRequestsPerSecond), config.GraphBurst),
	}
}

// Wait blocks until a call to the given family is permitted or ctx is done.
func (l *Limiter) Wait(ctx context.Context, family Family) error {
	return l.limiterFor(family).Wait(ctx)
}

// UpdateConfig swaps in new per-family limiters, discarding accumulated
// burst credit — matches the teacher's reconfigure-in-place behavior.
func (l *Limiter) UpdateConfig(config Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rest = rate.NewLimiter(rate.Limit(config.RESTRequestsPerSecond), config.RESTBurst)
	l.graph = rate.NewLimiter(rate.Limit(config.GraphRequestsPerSecond), config.GraphBurst)
}

func (l *Limiter) limiterFor(family Family) *rate.Limiter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if family == FamilyGraph {
		return l.graph
	}
	return l.rest
}

// DetectFamily guesses the endpoint family from a URL, for callers that
// only have a raw request URL to go on (the CLI/demo layer, mostly — the
// core engine always knows the family from the Request itself).
func DetectFamily(url string) Family {
	if strings.Contains(url, "/_api/") {
		return FamilyREST
	}
	return FamilyGraph
}
