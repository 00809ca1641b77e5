package spbatch

import "context"

// AuthenticationProvider mutates an outbound request to carry credentials
// for targetURI. It is an external collaborator: the engine never knows
// how credentials are obtained or refreshed, only that Authenticate
// populates req.Header before the transport sends it.
type AuthenticationProvider interface {
	Authenticate(ctx context.Context, targetURI string, req *OutboundRequest) error
}

// OutboundRequest is the minimal mutable view of an HTTP request an
// AuthenticationProvider needs: enough to add headers (bearer tokens,
// basic-auth headers, API keys) without coupling the engine or its
// collaborators to net/http or resty request types.
type OutboundRequest struct {
	Method string
	URL    string
	Header map[string]string
}

// SetHeader sets (overwriting) a header on the outbound request.
func (r *OutboundRequest) SetHeader(key, value string) {
	if r.Header == nil {
		r.Header = make(map[string]string)
	}
	r.Header[key] = value
}

// Transport sends one already-framed HTTP call and returns the envelope's
// status code, response headers, and response body as text. A non-2xx
// status is not a Go error at this layer — the dispatcher interprets it.
// An error return means the call never got a response at all (DNS,
// connection refused, context cancellation, exhausted transport-level
// retries).
type Transport interface {
	Send(ctx context.Context, req *OutboundRequest, body string) (status int, headers map[string]string, respBody string, err error)
}

// RestTransport and GraphTransport are the same shape but kept as distinct
// types so a Client can be wired with two different implementations (and
// so a caller can't accidentally hand a Graph transport to the REST slot).
type RestTransport interface {
	Transport
}

type GraphTransport interface {
	Transport
}

// JSONMappingHelper reads a Request's populated ResponseJSON and writes it
// into Request.Model. Left as an external collaborator because the shape
// of the domain model (and how JSON fields map onto it) is specific to
// whatever object graph the caller maintains — the engine only needs to
// know the mapping happened before reconciliation runs.
type JSONMappingHelper interface {
	Map(req *Request) error
}

// DataModel is the weak back-reference a Request holds to a caller-owned
// domain object. The engine never constructs or owns one.
type DataModel interface {
	// KeyValue returns the value of the given key field, and whether the
	// model currently has a value for it at all (ServiceNow/SharePoint
	// "no value yet" and "empty string" are different states).
	KeyValue(fieldName string) (value string, ok bool)
}

// TransientObject is implemented by domain models that track dirty state
// and can commit a successful mutation, or merge another instance's
// properties into themselves (used by the reconciler to fold duplicate
// GET results into one canonical model).
type TransientObject interface {
	DataModel
	Commit() error
	Merge(other DataModel) error
}

// IDataModelParent is implemented by a domain model that knows which
// collection it lives in, so the reconciler can remove it after a
// successful DELETE or after being folded into a GET-duplicate's
// canonical model.
type IDataModelParent interface {
	Parent() ManageableCollection
}

// ManageableCollection is the minimal capability the reconciler needs from
// a parent collection: removing one of its members.
type ManageableCollection interface {
	Remove(model DataModel) error
}

// Deletable is implemented by domain models that track their own
// tombstone state; the reconciler sets this after a successful DELETE or
// after a GET-duplicate is folded away.
type Deletable interface {
	MarkDeleted()
}
