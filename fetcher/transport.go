package fetcher

import (
	"context"
	"net/http"
	"strconv"
	"sync"
)

// contextHeader carries the id of the bound context from colly's OnRequest
// hook to the transport. It is removed before the request leaves the process.
const contextHeader = "X-Fetcher-Context"

// contextTransport attaches the caller's context to outgoing requests.
// colly builds its requests without one, so a fetch registers its context
// under an id and tags the request with that id.
type contextTransport struct {
	base http.RoundTripper

	mu     sync.Mutex
	next   uint64
	active map[string]context.Context
}

func newContextTransport(base http.RoundTripper) *contextTransport {
	return &contextTransport{base: base, active: make(map[string]context.Context)}
}

func (t *contextTransport) setBase(base http.RoundTripper) {
	t.mu.Lock()
	t.base = base
	t.mu.Unlock()
}

// bind registers ctx and returns the id to tag requests with. release must be
// called once the fetch is done.
func (t *contextTransport) bind(ctx context.Context) (string, func()) {
	t.mu.Lock()
	t.next++
	id := strconv.FormatUint(t.next, 10)
	t.active[id] = ctx
	t.mu.Unlock()

	return id, func() {
		t.mu.Lock()
		delete(t.active, id)
		t.mu.Unlock()
	}
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	base := t.base
	var ctx context.Context
	id := req.Header.Get(contextHeader)
	if id != "" {
		ctx = t.active[id]
	}
	t.mu.Unlock()

	if base == nil {
		base = http.DefaultTransport
	}
	if id == "" {
		return base.RoundTrip(req)
	}

	if ctx == nil {
		ctx = req.Context()
	}
	out := req.Clone(ctx)
	out.Header.Del(contextHeader)
	return base.RoundTrip(out)
}
