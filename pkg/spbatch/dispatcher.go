package spbatch

import (
	"context"
	"fmt"
)

// dispatcher owns the collaborators needed to turn a resolved plan into
// actual HTTP traffic: authentication, the two transports, and the
// response-to-model mapper. It has no state of its own beyond its
// collaborators — all per-batch state lives on *Batch.
type dispatcher struct {
	restTransport  RestTransport
	graphTransport GraphTransport
	auth           AuthenticationProvider
	mapper         JSONMappingHelper

	// graphBaseURL is the Graph $batch endpoint's base, e.g.
	// "https://graph.microsoft.com/beta" or ".../v1.0" (SPEC_FULL.md D.4).
	graphBaseURL string

	// progress, if non-nil, receives a ProgressEvent after each request is
	// processed. Set via Client.SetProgressChannel.
	progress chan<- ProgressEvent
}

func newDispatcher(rest RestTransport, graph GraphTransport, auth AuthenticationProvider, mapper JSONMappingHelper, graphBaseURL string) *dispatcher {
	return &dispatcher{
		restTransport:  rest,
		graphTransport: graph,
		auth:           auth,
		mapper:         mapper,
		graphBaseURL:   graphBaseURL,
	}
}

// dispatch sends every sub-batch a plan calls for, REST sites first (each
// independently), then GRAPH, skipping any sub-batch already recorded in
// b.completedSubBatches from a prior, cancelled ExecuteBatch attempt. On
// caller cancellation between sub-batches it returns a *CancellationError
// without touching sub-batches not yet started.
func (d *dispatcher) dispatch(ctx context.Context, b *Batch, p plan) error {
	if len(p.restOrders) > 0 {
		siteBatches, err := partitionBySite(b, p.restOrders)
		if err != nil {
			return err
		}
		for _, sb := range siteBatches {
			if err := d.runRESTSubBatch(ctx, b, sb); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return &CancellationError{Err: err}
			}
		}
	}

	if len(p.graphOrders) > 0 {
		if err := d.runGraphSubBatch(ctx, b, p.graphOrders); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return &CancellationError{Err: err}
		}
	}

	return nil
}

func (d *dispatcher) runRESTSubBatch(ctx context.Context, b *Batch, sb restSiteBatch) error {
	key := subBatchKey(FamilyREST, sb.site)
	if b.completedSubBatches[key] {
		return nil
	}

	endpoint := sb.site + "/_api/$batch"
	out := &OutboundRequest{Method: "POST", URL: endpoint, Header: map[string]string{
		"Content-Type": sb.contentType,
	}}
	if err := d.auth.Authenticate(ctx, sb.site, out); err != nil {
		return fmt.Errorf("spbatch: authenticating REST batch for %s: %w", sb.site, err)
	}

	status, _, respBody, err := d.restTransport.Send(ctx, out, sb.body)
	if err != nil {
		return &TransportFailure{RequestURL: endpoint, StatusCode: 0, Body: err.Error()}
	}
	if status/100 != 2 {
		return &TransportFailure{RequestURL: endpoint, StatusCode: status, Body: respBody}
	}

	if err := parseRESTResponse(b, sb.orders, respBody); err != nil {
		return err
	}

	if err := d.postProcessAll(b, sb.orders); err != nil {
		return err
	}

	b.completedSubBatches[key] = true
	return nil
}

func (d *dispatcher) runGraphSubBatch(ctx context.Context, b *Batch, orders []int) error {
	key := subBatchKey(FamilyGraph, "")
	if b.completedSubBatches[key] {
		return nil
	}

	body, err := frameGraphBody(b, orders)
	if err != nil {
		return err
	}

	endpoint := d.graphBaseURL + "/$batch"
	out := &OutboundRequest{Method: "POST", URL: endpoint, Header: map[string]string{
		"Content-Type": "application/json",
	}}
	if err := d.auth.Authenticate(ctx, d.graphBaseURL, out); err != nil {
		return fmt.Errorf("spbatch: authenticating GRAPH batch: %w", err)
	}

	status, _, respBody, err := d.graphTransport.Send(ctx, out, body)
	if err != nil {
		return &TransportFailure{RequestURL: endpoint, StatusCode: 0, Body: err.Error()}
	}
	if status/100 != 2 {
		return &TransportFailure{RequestURL: endpoint, StatusCode: status, Body: respBody}
	}

	if err := parseGraphResponse(b, respBody); err != nil {
		return err
	}

	if err := d.postProcessAll(b, orders); err != nil {
		return err
	}

	b.completedSubBatches[key] = true
	return nil
}

func (d *dispatcher) postProcessAll(b *Batch, orders []int) error {
	for _, order := range orders {
		req, ok := b.getRequest(order)
		if !ok || !req.Responded() {
			continue
		}
		err := d.postProcess(req)
		d.emit(req, err)
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *dispatcher) emit(req *Request, err error) {
	if d.progress == nil {
		return
	}
	d.progress <- ProgressEvent{
		RequestID: req.ID(),
		Method:    req.Method,
		Family:    req.Family,
		Status:    req.ResponseStatus,
		Err:       err,
	}
}

// postProcess runs a responded request's mapping pipeline: the optional
// raw-JSON transform, the caller's JSONMappingHelper, the optional
// second-pass hook, and — for a successful PATCH against a model that
// tracks dirty state — Commit.
func (d *dispatcher) postProcess(req *Request) error {
	if req.FromJSONCasting != nil {
		transformed, err := req.FromJSONCasting(req.ResponseJSON)
		if err != nil {
			return fmt.Errorf("spbatch: casting response for request %s: %w", req.ID(), err)
		}
		req.ResponseJSON = transformed
	}

	if d.mapper != nil && req.Model != nil && req.ResponseJSON != "" {
		if err := d.mapper.Map(req); err != nil {
			return fmt.Errorf("spbatch: mapping response for request %s: %w", req.ID(), err)
		}
	}

	if req.PostMappingJSON != nil {
		if err := req.PostMappingJSON(req.Model, req.ResponseJSON); err != nil {
			return fmt.Errorf("spbatch: post-mapping hook for request %s: %w", req.ID(), err)
		}
	}

	if req.Method == MethodPATCH {
		if to, ok := req.Model.(TransientObject); ok {
			if err := to.Commit(); err != nil {
				return fmt.Errorf("spbatch: committing request %s: %w", req.ID(), err)
			}
		}
	}

	return nil
}
