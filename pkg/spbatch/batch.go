package spbatch

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// BatchState is the per-batch state machine from spec §4.8: Open ->
// Executing -> Executed -> Reaped. A batch that is mid-split (one
// sub-batch done, another not yet attempted or not yet successful) stays
// Executing rather than flipping to Executed — see subBatchKey and
// Batch.allSubBatchesDone.
type BatchState string

const (
	StateOpen      BatchState = "open"
	StateExecuting BatchState = "executing"
	StateExecuted  BatchState = "executed"
	StateReaped    BatchState = "reaped"
)

// Batch is an ordered container of queued Requests with a stable GUID
// identity. It is caller-populated (via add) and then handed to
// Client.ExecuteBatch.
type Batch struct {
	id    string
	order int
	byOrder map[int]*Request

	state BatchState

	// completedSubBatches records, per sub-batch key, that dispatch has
	// already completed successfully for it — so a retried ExecuteBatch
	// on a partially-executed split batch only re-dispatches what's left.
	// See spec §9 "cancellation mid-split".
	completedSubBatches map[string]bool
}

// subBatchKey identifies one of the HTTP calls a batch can decompose into:
// the single GRAPH call, or one REST call per distinct site.
func subBatchKey(family APIFamily, site string) string {
	if family == FamilyGraph {
		return "graph"
	}
	return "rest:" + site
}

// newBatch creates an empty, Open batch with the given id (a fresh GUID if
// id is empty).
func newBatch(id string) *Batch {
	if id == "" {
		id = uuid.New().String()
	}
	return &Batch{
		id:                  id,
		byOrder:             make(map[int]*Request),
		state:               StateOpen,
		completedSubBatches: make(map[string]bool),
	}
}

// ID returns the batch's GUID identity.
func (b *Batch) ID() string { return b.id }

// State returns the batch's current lifecycle state.
func (b *Batch) State() BatchState { return b.state }

// Requests returns a snapshot of the batch's requests in insertion
// (order) sequence. The returned slice is safe to range over without
// affecting the batch's internal map.
func (b *Batch) Requests() []*Request {
	out := make([]*Request, 0, len(b.byOrder))
	for _, r := range b.byOrder {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// getRequest looks up a request by its order. O(1).
func (b *Batch) getRequest(order int) (*Request, bool) {
	r, ok := b.byOrder[order]
	return r, ok
}

// removeRequest deletes a request by order — used by the deduplicator.
// Does not renumber remaining requests: order is a stable identity, not a
// dense index once dedup has run.
func (b *Batch) removeRequest(order int) {
	delete(b.byOrder, order)
}

// add appends a new request to the batch, assigning the next order. Only
// legal while the batch is Open.
func (b *Batch) add(
	model DataModel,
	entity EntityInfo,
	method HTTPMethod,
	primary Call,
	backup *BackupCall,
	fromJSONCasting func(string) (string, error),
	postMappingJSON func(DataModel, string) error,
) (*Request, error) {
	if b.state != StateOpen {
		return nil, fmt.Errorf("spbatch: cannot add to batch %s in state %s", b.id, b.state)
	}

	family := FamilyREST
	if backup != nil {
		family = FamilyGraph
	}

	req := &Request{
		order:           b.order,
		Method:          method,
		Family:          family,
		Primary:         primary,
		Backup:          backup,
		Model:           model,
		Entity:          entity,
		FromJSONCasting: fromJSONCasting,
		PostMappingJSON: postMappingJSON,
	}
	b.byOrder[b.order] = req
	b.order++
	return req, nil
}

// AddREST queues a REST-family operation.
func (b *Batch) AddREST(model DataModel, entity EntityInfo, method HTTPMethod, primary Call, fromJSONCasting func(string) (string, error), postMappingJSON func(DataModel, string) error) (*Request, error) {
	req, err := b.add(model, entity, method, primary, nil, fromJSONCasting, postMappingJSON)
	if err != nil {
		return nil, err
	}
	req.Family = FamilyREST
	return req, nil
}

// AddGraph queues a GRAPH-family operation, optionally with a REST backup
// call the engine may fall back to (spec §4.3).
func (b *Batch) AddGraph(model DataModel, entity EntityInfo, method HTTPMethod, primary Call, backup *BackupCall, fromJSONCasting func(string) (string, error), postMappingJSON func(DataModel, string) error) (*Request, error) {
	req, err := b.add(model, entity, method, primary, backup, fromJSONCasting, postMappingJSON)
	if err != nil {
		return nil, err
	}
	req.Family = FamilyGraph
	return req, nil
}

// useGraphBatch reports whether every request in the batch targets GRAPH.
func (b *Batch) useGraphBatch() bool {
	if len(b.byOrder) == 0 {
		return false
	}
	for _, r := range b.byOrder {
		if r.Family != FamilyGraph {
			return false
		}
	}
	return true
}

// hasMixedAPITypes reports whether both REST and GRAPH requests are
// present.
func (b *Batch) hasMixedAPITypes() bool {
	sawREST, sawGraph := false, false
	for _, r := range b.byOrder {
		if r.Family == FamilyGraph {
			sawGraph = true
		} else {
			sawREST = true
		}
		if sawREST && sawGraph {
			return true
		}
	}
	return false
}

// canFallBackToREST reports whether every GRAPH-family request in the
// batch has a non-nil REST backup call.
func (b *Batch) canFallBackToREST() bool {
	for _, r := range b.byOrder {
		if r.Family == FamilyGraph && (r.Backup == nil || r.Backup.Family != FamilyREST) {
			return false
		}
	}
	return true
}

// makeRestOnlyBatch promotes every GRAPH request's REST backup call into
// its primary slot and re-tags it REST. Precondition: canFallBackToREST()
// must already be true — callers (the resolver) check this before calling.
func (b *Batch) makeRestOnlyBatch() error {
	for _, r := range b.byOrder {
		if r.Family != FamilyGraph {
			continue
		}
		if r.Backup == nil || r.Backup.Family != FamilyREST {
			return &PreconditionError{Reason: fmt.Sprintf("request %d has no REST backup call", r.order)}
		}
		r.Primary = r.Backup.Call
		r.Family = FamilyREST
		r.Backup = nil
	}
	return nil
}

// allSubBatchesDone reports whether every distinct sub-batch this batch
// decomposes into has already completed (see subBatchKey).
func (b *Batch) allSubBatchesDone(keys []string) bool {
	for _, k := range keys {
		if !b.completedSubBatches[k] {
			return false
		}
	}
	return true
}
