package spbatch

import (
	"context"
	"testing"
)

type fakeAuth struct {
	calls int
	err   error
}

func (f *fakeAuth) Authenticate(ctx context.Context, targetURI string, req *OutboundRequest) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	req.SetHeader("Authorization", "Bearer test")
	return nil
}

type fakeTransport struct {
	status  int
	body    string
	err     error
	sent    []string // bodies sent, in call order
}

func (f *fakeTransport) Send(ctx context.Context, req *OutboundRequest, body string) (int, map[string]string, string, error) {
	f.sent = append(f.sent, body)
	if f.err != nil {
		return 0, nil, "", f.err
	}
	return f.status, nil, f.body, nil
}

type noopMapper struct{}

func (noopMapper) Map(req *Request) error { return nil }

func TestDispatcher_AllRESTDispatch(t *testing.T) {
	b := newBatch("")
	b.AddREST(nil, EntityInfo{}, MethodGET, Call{RequestURL: "https://s/_api/web/lists"}, nil, nil)

	rest := &fakeTransport{status: 200, body: "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n{\"Id\":1}\r\n"}
	graph := &fakeTransport{}
	d := newDispatcher(rest, graph, &fakeAuth{}, noopMapper{}, "https://graph.microsoft.com/v1.0")

	p, err := resolve(b)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := d.dispatch(context.Background(), b, p); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(rest.sent) != 1 {
		t.Errorf("expected 1 REST send, got %d", len(rest.sent))
	}
	if len(graph.sent) != 0 {
		t.Errorf("expected no GRAPH sends, got %d", len(graph.sent))
	}
	req, _ := b.getRequest(0)
	if req.ResponseStatus != 200 {
		t.Errorf("expected status 200, got %d", req.ResponseStatus)
	}
}

func TestDispatcher_AllGraphDispatch(t *testing.T) {
	b := newBatch("")
	b.AddGraph(nil, EntityInfo{}, MethodGET, Call{RequestURL: "/sites/root"}, nil, nil, nil)

	rest := &fakeTransport{}
	graph := &fakeTransport{status: 200, body: `{"responses":[{"id":"1","status":200,"body":{"id":"root"}}]}`}
	d := newDispatcher(rest, graph, &fakeAuth{}, noopMapper{}, "https://graph.microsoft.com/v1.0")

	p, err := resolve(b)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := d.dispatch(context.Background(), b, p); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(graph.sent) != 1 {
		t.Errorf("expected 1 GRAPH send, got %d", len(graph.sent))
	}
}

func TestDispatcher_SplitRunsRESTBeforeGraph(t *testing.T) {
	b := newBatch("")
	b.AddREST(nil, EntityInfo{}, MethodGET, Call{RequestURL: "https://s/_api/web/lists"}, nil, nil)
	b.AddGraph(nil, EntityInfo{}, MethodGET, Call{RequestURL: "/users"}, nil, nil, nil)

	var order []string
	rest := &orderedTransport{name: "rest", status: 200, body: "HTTP/1.1 200 OK\r\n\r\n{\"Id\":1}\r\n", log: &order}
	graph := &orderedTransport{name: "graph", status: 200, body: `{"responses":[{"id":"2","status":200,"body":{"id":"u"}}]}`, log: &order}
	d := newDispatcher(rest, graph, &fakeAuth{}, noopMapper{}, "https://graph.microsoft.com/v1.0")

	p, err := resolve(b)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(p.restOrders) != 1 || len(p.graphOrders) != 1 {
		t.Fatalf("expected a real split, got %d/%d", len(p.restOrders), len(p.graphOrders))
	}
	if err := d.dispatch(context.Background(), b, p); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(order) != 2 || order[0] != "rest" || order[1] != "graph" {
		t.Errorf("expected REST before GRAPH, got %v", order)
	}
}

type orderedTransport struct {
	name   string
	status int
	body   string
	log    *[]string
}

func (o *orderedTransport) Send(ctx context.Context, req *OutboundRequest, body string) (int, map[string]string, string, error) {
	*o.log = append(*o.log, o.name)
	return o.status, nil, o.body, nil
}

func TestDispatcher_SkipsAlreadyCompletedSubBatch(t *testing.T) {
	b := newBatch("")
	b.AddGraph(nil, EntityInfo{}, MethodGET, Call{RequestURL: "/sites/root"}, nil, nil, nil)
	b.completedSubBatches[subBatchKey(FamilyGraph, "")] = true

	graph := &fakeTransport{status: 200, body: `{"responses":[]}`}
	d := newDispatcher(&fakeTransport{}, graph, &fakeAuth{}, noopMapper{}, "https://graph.microsoft.com/v1.0")

	p, err := resolve(b)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := d.dispatch(context.Background(), b, p); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(graph.sent) != 0 {
		t.Errorf("expected the already-completed sub-batch to be skipped, got %d sends", len(graph.sent))
	}
}

func TestDispatcher_TransportFailureOnNonSuccessEnvelope(t *testing.T) {
	b := newBatch("")
	b.AddGraph(nil, EntityInfo{}, MethodGET, Call{RequestURL: "/sites/root"}, nil, nil, nil)

	graph := &fakeTransport{status: 500, body: "internal error"}
	d := newDispatcher(&fakeTransport{}, graph, &fakeAuth{}, noopMapper{}, "https://graph.microsoft.com/v1.0")

	p, _ := resolve(b)
	err := d.dispatch(context.Background(), b, p)
	if _, ok := err.(*TransportFailure); !ok {
		t.Fatalf("expected *TransportFailure, got %T (%v)", err, err)
	}
}

func TestDispatcher_PostProcessCommitsOnPATCH(t *testing.T) {
	b := newBatch("")
	model := &commitTrackingModel{}
	b.AddREST(model, EntityInfo{}, MethodPATCH, Call{RequestURL: "https://s/_api/web/lists/x", JSONBody: `{"Title":"y"}`}, nil, nil)

	rest := &fakeTransport{status: 200, body: "HTTP/1.1 204 No Content\r\n\r\n"}
	d := newDispatcher(rest, &fakeTransport{}, &fakeAuth{}, noopMapper{}, "https://graph.microsoft.com/v1.0")

	p, _ := resolve(b)
	if err := d.dispatch(context.Background(), b, p); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !model.committed {
		t.Error("expected Commit to be called after a successful PATCH")
	}
}

type commitTrackingModel struct {
	committed bool
}

func (m *commitTrackingModel) KeyValue(fieldName string) (string, bool) { return "", false }
func (m *commitTrackingModel) Commit() error                            { m.committed = true; return nil }
func (m *commitTrackingModel) Merge(other DataModel) error              { return nil }
