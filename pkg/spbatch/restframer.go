package spbatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// restSiteBatch is one site's worth of REST requests, framed as a single
// multipart/mixed HTTP call.
type restSiteBatch struct {
	site        string
	orders      []int
	contentType string
	body        string
}

// partitionBySite groups REST-family orders by their site root (the URL
// prefix before the first "/_api/"), preserving each request's original
// order as the intra-sub-batch key, and returns one restSiteBatch per
// distinct site in a deterministic (sorted) order.
func partitionBySite(b *Batch, orders []int) ([]restSiteBatch, error) {
	bySite := make(map[string][]int)
	var sites []string

	for _, order := range orders {
		req, ok := b.getRequest(order)
		if !ok {
			continue
		}
		site, ok := req.Primary.site()
		if !ok {
			return nil, &PreconditionError{Reason: fmt.Sprintf("REST request %d URL %q has no /_api/ segment", order, req.Primary.RequestURL)}
		}
		if _, seen := bySite[site]; !seen {
			sites = append(sites, site)
		}
		bySite[site] = append(bySite[site], order)
	}
	sort.Strings(sites)

	batches := make([]restSiteBatch, 0, len(sites))
	for _, site := range sites {
		siteOrders := bySite[site]
		sort.Ints(siteOrders)
		contentType, body, err := frameRESTBody(b, site, siteOrders)
		if err != nil {
			return nil, err
		}
		batches = append(batches, restSiteBatch{site: site, orders: siteOrders, contentType: contentType, body: body})
	}
	return batches, nil
}

// frameRESTBody serializes one site's sub-batch into a multipart/mixed
// body per spec §4.4, boundary batch_{batchId}.
func frameRESTBody(b *Batch, site string, orders []int) (contentType string, body string, err error) {
	boundary := "batch_" + b.ID()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return "", "", fmt.Errorf("spbatch: invalid batch boundary: %w", err)
	}

	for _, order := range orders {
		req, ok := b.getRequest(order)
		if !ok {
			continue
		}
		if req.Method == MethodGET {
			if err := writeRESTGetPart(mw, req); err != nil {
				return "", "", err
			}
			continue
		}
		if err := writeRESTChangesetPart(mw, req); err != nil {
			return "", "", err
		}
	}

	if err := mw.Close(); err != nil {
		return "", "", fmt.Errorf("spbatch: closing REST batch for site %s: %w", site, err)
	}

	return "multipart/mixed; boundary=" + mw.Boundary(), buf.String(), nil
}

func writeRESTGetPart(mw *multipart.Writer, req *Request) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "application/http")
	header.Set("Content-Transfer-Encoding", "binary")

	pw, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("spbatch: framing GET part: %w", err)
	}

	var inner strings.Builder
	fmt.Fprintf(&inner, "GET %s HTTP/1.1\r\n", req.Primary.RequestURL)
	inner.WriteString("Accept: application/json;odata=verbose\r\n")
	writeExtraHeaders(&inner, req.Headers)
	inner.WriteString("\r\n")

	_, err = pw.Write([]byte(inner.String()))
	return err
}

func writeRESTChangesetPart(mw *multipart.Writer, req *Request) error {
	changesetBoundary := "changeset_" + uuid.New().String()

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%s", changesetBoundary))

	pw, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("spbatch: framing changeset part: %w", err)
	}

	csBuf := &bytes.Buffer{}
	csWriter := multipart.NewWriter(csBuf)
	if err := csWriter.SetBoundary(changesetBoundary); err != nil {
		return fmt.Errorf("spbatch: invalid changeset boundary: %w", err)
	}

	csHeader := textproto.MIMEHeader{}
	csHeader.Set("Content-Type", "application/http")
	csHeader.Set("Content-Transfer-Encoding", "binary")

	cpw, err := csWriter.CreatePart(csHeader)
	if err != nil {
		return fmt.Errorf("spbatch: framing changeset sub-part: %w", err)
	}

	body := req.Primary.JSONBody
	var inner strings.Builder
	fmt.Fprintf(&inner, "%s %s HTTP/1.1\r\n", req.Method, req.Primary.RequestURL)
	inner.WriteString("Accept: application/json;odata=verbose\r\n")
	inner.WriteString("Content-Type: application/json;odata=verbose\r\n")
	if body != "" {
		fmt.Fprintf(&inner, "Content-Length: %d\r\n", len(body))
	}
	inner.WriteString("If-Match: *\r\n")
	writeExtraHeaders(&inner, req.Headers)
	inner.WriteString("\r\n")
	if body != "" {
		inner.WriteString(body)
	}

	if _, err := cpw.Write([]byte(inner.String())); err != nil {
		return err
	}
	if err := csWriter.Close(); err != nil {
		return fmt.Errorf("spbatch: closing changeset: %w", err)
	}

	_, err = pw.Write(csBuf.Bytes())
	return err
}

func writeExtraHeaders(w *strings.Builder, headers map[string]string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\r\n", k, headers[k])
	}
}

// parseRESTResponse walks a REST $batch response line by line per spec
// §4.4 and attaches each 2xx sub-response to the next unconsumed request
// in orders (ascending). Returns a *SubRequestFailure on the first non-2xx
// sub-response, or a *MalformedResponse if a status line or a "{"-prefixed
// body line can't be parsed.
//
// This is a deliberately naive line scanner, not a MIME parser: it
// inherits the documented limitation that a JSON body wrapped over
// multiple lines, or a top-level JSON array, will not be recognized. See
// spec §9's open question and SPEC_FULL.md D.3.
func parseRESTResponse(b *Batch, orders []int, raw string) error {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	counter := 0
	var currentStatus int
	statusPending := false

	attach := func(status int, line string) error {
		if counter >= len(orders) {
			return &MalformedResponse{Reason: "more sub-responses than sub-requests"}
		}
		req, ok := b.getRequest(orders[counter])
		counter++
		if !ok {
			return &MalformedResponse{Reason: "sub-response for unknown request"}
		}
		if status/100 != 2 {
			return &SubRequestFailure{RequestURL: req.Primary.RequestURL, StatusCode: status, Body: line}
		}
		body := line
		if status == 204 {
			body = ""
		}
		req.attachResponse(status, body)
		return nil
	}

	for _, rawLine := range lines {
		line := strings.TrimRight(rawLine, "\r")

		switch {
		case strings.HasPrefix(line, "HTTP/1.1 "):
			code, err := parseStatusLine(line)
			if err != nil {
				return &MalformedResponse{Reason: "unparsable status line", Line: line}
			}
			currentStatus = code
			statusPending = true
			if code == 204 {
				if err := attach(code, ""); err != nil {
					return err
				}
				statusPending = false
			}
		case statusPending && strings.HasPrefix(line, "{"):
			if !json.Valid([]byte(line)) {
				return &MalformedResponse{Reason: "invalid JSON body line", Line: line}
			}
			if err := attach(currentStatus, line); err != nil {
				return err
			}
			statusPending = false
		}
	}

	return nil
}

func parseStatusLine(line string) (int, error) {
	rest := strings.TrimPrefix(line, "HTTP/1.1 ")
	fields := strings.SplitN(rest, " ", 2)
	if len(fields) == 0 || len(fields[0]) != 3 {
		return 0, fmt.Errorf("spbatch: not a 3-digit status code: %q", line)
	}
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, err
	}
	return code, nil
}
