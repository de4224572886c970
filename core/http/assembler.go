package http

import "bytes"

// Assembler incrementally assembles HTTP/1.1 requests from a byte stream.
// It keeps unconsumed bytes between calls, so a message split across many
// reads or several messages delivered in one read are handled alike.
//
// An Assembler is owned by a single reactor and is not safe for concurrent use.
type Assembler struct {
	buf []byte

	// pending holds the parsed head of a message whose body is still
	// arriving; headLen is its size including the terminator and bodyLen the
	// number of body bytes it expects.
	pending *Request
	headLen int
	bodyLen int
}

// NewAssembler returns an Assembler with an initial buffer capacity.
func NewAssembler(capacity int) *Assembler {
	return &Assembler{buf: make([]byte, 0, capacity)}
}

// Feed appends p and returns every request completed by it, in arrival order.
func (a *Assembler) Feed(p []byte) []*Request {
	a.buf = append(a.buf, p...)

	var reqs []*Request
	for {
		req, ok := a.Next()
		if !ok {
			break
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// Next extracts one complete request from the buffered bytes. It returns
// false, consuming nothing, when no complete message is buffered.
func (a *Assembler) Next() (*Request, bool) {
	if a.pending == nil {
		a.skipLeadingCRLF()

		end := bytes.Index(a.buf, headTerminator)
		if end < 0 {
			return nil, false
		}
		a.pending = parseHead(a.buf[:end])
		a.headLen = end + len(headTerminator)
		a.bodyLen = a.pending.ContentLength()
	}

	if len(a.buf)-a.headLen < a.bodyLen {
		return nil, false
	}

	req := a.pending
	if a.bodyLen > 0 {
		req.Body = make([]byte, a.bodyLen)
		copy(req.Body, a.buf[a.headLen:a.headLen+a.bodyLen])
	}
	a.consume(a.headLen + a.bodyLen)

	a.pending = nil
	a.headLen = 0
	a.bodyLen = 0
	return req, true
}

// BodyRemaining returns how many body bytes the partially received message
// still needs, or 0 when no head is pending.
func (a *Assembler) BodyRemaining() int {
	if a.pending == nil {
		return 0
	}
	if have := len(a.buf) - a.headLen; have < a.bodyLen {
		return a.bodyLen - have
	}
	return 0
}

// Buffered returns the bytes received but not yet consumed. The slice is
// only valid until the next call to Feed.
func (a *Assembler) Buffered() []byte {
	return a.buf
}

// Len returns the number of buffered bytes.
func (a *Assembler) Len() int {
	return len(a.buf)
}

// Reset drops all buffered state.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.pending = nil
	a.headLen = 0
	a.bodyLen = 0
}

// skipLeadingCRLF drops blank lines preceding a request line.
func (a *Assembler) skipLeadingCRLF() {
	n := 0
	for len(a.buf)-n >= 2 && a.buf[n] == '\r' && a.buf[n+1] == '\n' {
		n += 2
	}
	if n > 0 {
		a.consume(n)
	}
}

func (a *Assembler) consume(n int) {
	rem := copy(a.buf, a.buf[n:])
	a.buf = a.buf[:rem]
}
