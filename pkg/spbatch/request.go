package spbatch

import "strconv"

// HTTPMethod is the set of methods the engine frames. PUT is deliberately
// absent: unlike the teacher's ServiceNow batch (which mirrors REST PUT for
// full-record replace), neither the SharePoint REST nor the Graph batch
// endpoint this engine targets models idempotent replace as a first-class
// batch primitive.
type HTTPMethod string

const (
	MethodGET    HTTPMethod = "GET"
	MethodPOST   HTTPMethod = "POST"
	MethodPATCH  HTTPMethod = "PATCH"
	MethodDELETE HTTPMethod = "DELETE"
)

// APIFamily is one of the two target APIs an operation can be addressed
// to.
type APIFamily string

const (
	FamilyREST  APIFamily = "rest"
	FamilyGraph APIFamily = "graph"
)

// Call is one HTTP call's worth of framing detail: where it goes and, for
// mutating methods, what JSON body to send.
type Call struct {
	RequestURL string
	JSONBody   string // empty for GET/DELETE
}

// BackupCall is a Call annotated with the family it targets, used as the
// REST fall-back for a GRAPH-family request.
type BackupCall struct {
	Call
	Family APIFamily
}

// EntityInfo carries the per-entity-type metadata the reconciler needs to
// detect duplicate GET results: the name of the key field under each
// family (SharePoint REST and Graph often disagree on what a "key" is
// called for the same logical entity — e.g. "Id" vs "id", or a GUID vs a
// composite path).
type EntityInfo struct {
	RestKeyField  string
	GraphKeyField string
}

// KeyField returns the key-field name relevant to the given family.
func (e EntityInfo) KeyField(family APIFamily) string {
	if family == FamilyGraph {
		return e.GraphKeyField
	}
	return e.RestKeyField
}

// Request describes one queued operation. It is immutable after it is
// appended to a Batch, except for the response fields, which the
// dispatcher populates exactly once.
type Request struct {
	order int

	Method HTTPMethod
	Family APIFamily

	Primary Call
	Backup  *BackupCall

	Model  DataModel
	Entity EntityInfo

	// FromJSONCasting, if set, is given the raw response JSON and may
	// transform it (e.g. unwrap an OData "d" or "value" envelope) before
	// PostMappingJSON / the JSONMappingHelper sees it.
	FromJSONCasting func(rawJSON string) (string, error)
	// PostMappingJSON runs after the JSONMappingHelper has populated
	// Model, for callers that need a second pass (e.g. resolving a lookup
	// field against an already-loaded collection).
	PostMappingJSON func(model DataModel, rawJSON string) error

	// Extra headers the caller wants carried into the sub-request, merged
	// in by the framer after its own required headers.
	Headers map[string]string

	ResponseJSON   string
	ResponseStatus int
	responded      bool
}

// Order returns this request's stable, 0-based insertion index within its
// batch.
func (r *Request) Order() int { return r.order }

// ID returns the request's 1-based wire identity, used as the Graph
// envelope's "id" string.
func (r *Request) ID() string { return strconv.Itoa(r.order + 1) }

// Responded reports whether a response has been attached. It is false both
// for a request that was deduplicated away, which never responds, and for
// one still awaiting dispatch.
func (r *Request) Responded() bool { return r.responded }

// attachResponse records a sub-response. Called exactly once per
// dispatched request by a framer's response parser.
func (r *Request) attachResponse(status int, body string) {
	r.ResponseStatus = status
	r.ResponseJSON = body
	r.responded = true
}

// site returns the REST site root — everything before the first "/_api/"
// — used by the REST framer to partition a batch. Empty for GRAPH-family
// requests (and for any REST request whose URL lacks "/_api/", which is a
// caller error the framer surfaces as a PreconditionError).
func (c Call) site() (string, bool) {
	const marker = "/_api/"
	idx := indexOf(c.RequestURL, marker)
	if idx < 0 {
		return "", false
	}
	return c.RequestURL[:idx], true
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}
