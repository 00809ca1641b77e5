package spbatch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// graphBodyPlaceholder is substituted for a sub-request's already-serialized
// JSON body at envelope-build time, then swapped back for the raw bytes
// after json.Marshal has escaped everything else. This avoids double
// encoding a body the caller already produced as JSON text (see
// SPEC_FULL.md D.4) at the cost of requiring the placeholder string itself
// never appear inside a body.
const graphBodyPlaceholderFmt = `"@#|SPBATCH_BODY_%d|#@"`

type graphSubRequest struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

type graphEnvelope struct {
	Requests []graphSubRequest `json:"requests"`
}

type graphSubResponse struct {
	ID      string          `json:"id"`
	Status  int             `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

type graphResponseEnvelope struct {
	Responses []graphSubResponse `json:"responses"`
}

// frameGraphBody builds the Graph $batch JSON envelope for orders per spec
// §4.5 / SPEC_FULL.md D.4: each sub-request's id is its 1-based Request.ID,
// and a body that is already serialized JSON text is spliced in verbatim
// via the placeholder-and-replace technique rather than re-marshaled.
func frameGraphBody(b *Batch, orders []int) (string, error) {
	env := graphEnvelope{Requests: make([]graphSubRequest, 0, len(orders))}
	placeholders := make(map[string]string, len(orders))

	for _, order := range orders {
		req, ok := b.getRequest(order)
		if !ok {
			continue
		}

		sub := graphSubRequest{
			ID:     req.ID(),
			Method: string(req.Method),
			URL:    req.Primary.RequestURL,
		}
		if len(req.Headers) > 0 {
			sub.Headers = req.Headers
		}
		if req.Primary.JSONBody != "" {
			placeholder := fmt.Sprintf(graphBodyPlaceholderFmt, order)
			sub.Body = json.RawMessage(placeholder)
			placeholders[placeholder] = req.Primary.JSONBody
		}
		env.Requests = append(env.Requests, sub)
	}

	marshaled, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("spbatch: framing GRAPH envelope: %w", err)
	}

	out := string(marshaled)
	for placeholder, body := range placeholders {
		out = strings.Replace(out, placeholder, body, 1)
	}
	return out, nil
}

// parseGraphResponse deserializes a GRAPH $batch response envelope and
// attaches each sub-response to the request whose Request.ID matches its
// id. Unlike the REST line scanner, envelope order is not assumed to match
// request order since Graph is explicitly permitted to return responses
// out of order.
func parseGraphResponse(b *Batch, raw string) error {
	var env graphResponseEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return &MalformedResponse{Reason: "invalid GRAPH response envelope", Line: err.Error()}
	}

	sort.Slice(env.Responses, func(i, j int) bool { return env.Responses[i].ID < env.Responses[j].ID })

	for _, resp := range env.Responses {
		order, err := strconv.Atoi(resp.ID)
		if err != nil {
			return &MalformedResponse{Reason: "non-numeric GRAPH sub-response id", Line: resp.ID}
		}
		order--

		req, ok := b.getRequest(order)
		if !ok {
			return &MalformedResponse{Reason: fmt.Sprintf("GRAPH sub-response id %s has no matching request", resp.ID)}
		}

		if resp.Status/100 != 2 {
			return &SubRequestFailure{RequestURL: req.Primary.RequestURL, StatusCode: resp.Status, Body: string(resp.Body)}
		}

		body := ""
		if len(resp.Body) > 0 {
			body = string(resp.Body)
		}
		req.attachResponse(resp.Status, body)
	}

	return nil
}
