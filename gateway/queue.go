/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/mjsoltani/peyvandyar/httpclient"
)

// callResult is the outcome of a queued call: either the response body or a classified error.
type callResult struct {
	body json.RawMessage
	err  error
}

// queuedRequest is a descriptor of an upstream call waiting in the queue.
// It is created by a gateway operation and consumed exactly once by the processor.
type queuedRequest struct {
	id          string
	ctx         context.Context
	requestType string
	method      string
	url         string
	header      http.Header
	body        []byte
	enqueuedAt  time.Time

	// onSuccess is run by the processor after a successful call, before the result is delivered.
	onSuccess func()

	// result is buffered, so the processor never blocks on a caller that stopped waiting.
	result    chan callResult
	completed atomic.Bool
}

func newQueuedRequest(ctx context.Context, requestType, method, url string, header http.Header, body []byte) *queuedRequest {
	return &queuedRequest{
		id:          xid.New().String(),
		ctx:         httpclient.NewContextWithRequestType(context.WithoutCancel(ctx), requestType),
		requestType: requestType,
		method:      method,
		url:         url,
		header:      header,
		body:        body,
		result:      make(chan callResult, 1),
	}
}

func (qr *queuedRequest) newHTTPRequest() (*http.Request, error) {
	var body io.Reader = http.NoBody
	if qr.body != nil {
		body = bytes.NewReader(qr.body)
	}
	req, err := http.NewRequestWithContext(qr.ctx, qr.method, qr.url, body)
	if err != nil {
		return nil, err
	}
	for name, values := range qr.header {
		req.Header[name] = append([]string(nil), values...)
	}
	if qr.body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (qr *queuedRequest) resolve(body json.RawMessage) {
	qr.complete(callResult{body: body})
}

func (qr *queuedRequest) reject(err error) {
	qr.complete(callResult{err: err})
}

// complete delivers the first result only.
func (qr *queuedRequest) complete(res callResult) {
	if qr.completed.CompareAndSwap(false, true) {
		qr.result <- res
	}
}

// requestQueue is a FIFO of queued requests. Zero maxLength means unbounded.
type requestQueue struct {
	mu        sync.Mutex
	items     []*queuedRequest
	maxLength int
	closed    bool
	// notify has capacity 1 and wakes the processor after a push.
	notify chan struct{}
}

func newRequestQueue(maxLength int) *requestQueue {
	return &requestQueue{maxLength: maxLength, notify: make(chan struct{}, 1)}
}

func (q *requestQueue) push(qr *queuedRequest) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return len(q.items), ErrStopped
	}
	if q.maxLength > 0 && len(q.items) >= q.maxLength {
		return len(q.items), newQueueFullError()
	}
	q.items = append(q.items, qr)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return len(q.items), nil
}

// peek reports whether the queue has a request waiting.
func (q *requestQueue) peek() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) > 0
}

func (q *requestQueue) pop() (*queuedRequest, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, 0
	}
	qr := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return qr, len(q.items)
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *requestQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// close rejects further pushes and returns the requests that are still waiting.
func (q *requestQueue) close() []*queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	items := q.items
	q.items = nil
	return items
}
