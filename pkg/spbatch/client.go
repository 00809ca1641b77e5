package spbatch

import (
	"context"
	"fmt"
	"sync"
)

// Client is the façade a caller drives: it owns the registry of open
// batches and the collaborators (auth, transports, mapper) needed to
// execute them. One Client typically serves one SharePoint tenant /
// Graph application registration.
type Client struct {
	mu         sync.Mutex
	batches    map[string]*Batch
	dispatcher *dispatcher
}

// NewClient wires a Client's collaborators per spec §6's external
// interfaces. mapper may be nil for callers that only need raw
// ResponseJSON (no domain-model population).
func NewClient(restTransport RestTransport, graphTransport GraphTransport, auth AuthenticationProvider, mapper JSONMappingHelper, graphBaseURL string) *Client {
	return &Client{
		batches:    make(map[string]*Batch),
		dispatcher: newDispatcher(restTransport, graphTransport, auth, mapper, graphBaseURL),
	}
}

// EnsureBatch returns the Open batch registered under id, creating one (with
// a fresh GUID if id is empty) if none exists yet. Passing the empty string
// always mints a new batch — callers that want a shared default batch
// should hold onto the returned ID themselves.
func (c *Client) EnsureBatch(id string) *Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != "" {
		if b, ok := c.batches[id]; ok {
			return b
		}
	}
	b := newBatch(id)
	c.batches[b.id] = b
	return b
}

// ContainsBatch reports whether a batch with the given id is currently
// registered (in any state — including Executed batches not yet reaped).
func (c *Client) ContainsBatch(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.batches[id]
	return ok
}

// GetBatchByID looks up a registered batch.
func (c *Client) GetBatchByID(id string) (*Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.batches[id]
	return b, ok
}

// reap drops every registered batch already in StateExecuted, per spec
// §4.7: a batch is retained only long enough for the caller to inspect its
// requests' responses after ExecuteBatch returns, and is swept on the next
// call to ExecuteBatch (on any batch).
func (c *Client) reap() {
	for id, b := range c.batches {
		if b.state == StateExecuted {
			b.state = StateReaped
			delete(c.batches, id)
		}
	}
}

// ExecuteBatch dedupes, resolves, dispatches, and reconciles b. On success
// every request's ResponseJSON/ResponseStatus (and, where a
// JSONMappingHelper was wired, its Model) is populated, and b's state is
// Executed. On a dispatch failure b remains Executing — including a
// *CancellationError, where already-completed sub-batches are preserved in
// b.completedSubBatches so a subsequent ExecuteBatch(ctx, b) call resumes
// rather than re-sending everything.
func (c *Client) ExecuteBatch(ctx context.Context, b *Batch) error {
	c.mu.Lock()
	c.reap()
	c.mu.Unlock()

	if b.state == StateReaped {
		return &PreconditionError{Reason: fmt.Sprintf("batch %s already reaped", b.id)}
	}

	if len(b.Requests()) == 0 {
		b.state = StateExecuted
		return nil
	}

	if b.state == StateOpen {
		dedupe(b)
	}

	p, err := resolve(b)
	if err != nil {
		return err
	}

	b.state = StateExecuting

	if err := c.dispatcher.dispatch(ctx, b, p); err != nil {
		return err
	}

	if err := reconcile(b); err != nil {
		return err
	}

	b.state = StateExecuted
	return nil
}
