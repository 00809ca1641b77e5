package spbatch

// ProgressEvent reports one dispatched request's outcome, for a caller
// driving a live progress display (see internal/tui.Console). Emitted once
// per request that actually reaches postProcess — a request removed by
// dedupe never emits one.
type ProgressEvent struct {
	RequestID string
	Method    HTTPMethod
	Family    APIFamily
	Status    int
	Err       error
}

// SetProgressChannel wires a channel the dispatcher sends a ProgressEvent
// to after each request is processed. Sends block, so a slow consumer
// slows dispatch — callers that don't want that should buffer the channel
// themselves. Pass nil to stop emitting.
func (c *Client) SetProgressChannel(ch chan<- ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher.progress = ch
}
