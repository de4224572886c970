package http

import (
	"bytes"
	"strings"
)

var (
	crlf           = []byte("\r\n")
	headTerminator = []byte("\r\n\r\n")
)

// parseHead parses a request line and header block. head excludes the
// terminating blank line. Parsing is best-effort: a malformed request line
// yields whatever fields the whitespace split produces, and header lines
// without a colon are skipped.
func parseHead(head []byte) *Request {
	req := &Request{Header: make(Header, 8)}

	line := head
	rest := []byte(nil)
	if i := bytes.Index(head, crlf); i >= 0 {
		line, rest = head[:i], head[i+2:]
	}

	fields := strings.Fields(string(line))
	if len(fields) > 0 {
		req.Method = fields[0]
	}
	if len(fields) > 1 {
		req.Path = fields[1]
		if q := strings.IndexByte(req.Path, '?'); q >= 0 {
			req.Path, req.RawQuery = req.Path[:q], req.Path[q+1:]
		}
	}
	if len(fields) > 2 {
		req.Proto = fields[2]
	}

	parseHeaders(req.Header, rest)
	return req
}

// parseHeaders parses "Name: value" lines into h.
func parseHeaders(h Header, data []byte) {
	for len(data) > 0 {
		lineEnd := bytes.Index(data, crlf)
		line := data
		if lineEnd >= 0 {
			line, data = data[:lineEnd], data[lineEnd+2:]
		} else {
			data = nil
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		h.Set(string(line[:colon]), string(bytes.TrimSpace(line[colon+1:])))
	}
}
