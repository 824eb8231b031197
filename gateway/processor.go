/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"github.com/mjsoltani/peyvandyar/internal/ratewindow"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/restapi"
)

// processor is the single worker that drains the queue and serializes all upstream calls through one HTTP client.
// It implements service.Worker.
type processor struct {
	queue   *requestQueue
	window  *ratewindow.Window
	pacer   *ratewindow.Pacer
	client  *http.Client
	clock   clockwork.Clock
	logger  log.FieldLogger
	metrics MetricsCollector

	executed atomic.Int64
}

// Run processes queued requests in FIFO order until ctx is done.
// The call in progress is always completed. Requests still waiting when ctx is done are rejected with ErrStopped.
func (p *processor) Run(ctx context.Context) error {
	p.logger.Info("gateway processor started",
		log.Int("max_requests", p.window.MaxRequests()),
		log.Duration("window", p.window.Duration()),
		log.Duration("min_delay", p.pacer.MinDelay()),
	)
	defer func() {
		rejected := p.queue.close()
		for _, qr := range rejected {
			qr.reject(ErrStopped)
		}
		p.metrics.SetQueueLength(0)
		p.logger.Info("gateway processor stopped", log.Int("rejected", len(rejected)))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !p.queue.peek() {
			select {
			case <-ctx.Done():
				return nil
			case <-p.queue.notify:
				continue
			}
		}

		// Admission is checked before dequeuing, so the head stays in place while the window is full.
		if wait := p.window.TimeUntilNextSlot(p.clock.Now()); wait > 0 {
			p.logger.Debug("rate window is full, waiting for a free slot",
				log.Duration("wait", wait), log.Int("queue_length", p.queue.len()))
			p.metrics.ObserveAdmissionWait(wait)
			if !p.sleep(ctx, wait) {
				return nil
			}
			continue
		}

		qr, queueLen := p.queue.pop()
		if qr == nil {
			continue
		}
		p.metrics.SetQueueLength(queueLen)

		if wait := p.pacer.Delay(p.clock.Now()); wait > 0 {
			p.metrics.ObserveAdmissionWait(wait)
			if !p.sleep(ctx, wait) {
				qr.reject(ErrStopped)
				return nil
			}
		}

		p.execute(qr)
	}
}

func (p *processor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(d):
		return true
	}
}

// execute makes the HTTP call and completes the request. The call is recorded in the rate window
// and the pacer whatever its outcome, since a failed call still consumed the budget.
func (p *processor) execute(qr *queuedRequest) {
	logger := p.logger.With(
		log.String("gateway_request_id", qr.id),
		log.String("request_type", qr.requestType),
	)
	status := 0
	defer func() {
		completedAt := p.clock.Now()
		p.window.Record(completedAt)
		p.pacer.Record(completedAt)
		p.executed.Inc()
		p.metrics.IncUpstreamCalls(qr.requestType, status)
		if r := recover(); r != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			logger.Error(fmt.Sprintf("panic while calling product API: %+v", r), log.String("stack", string(stack)))
			qr.reject(newStatusError(0, "", fmt.Errorf("panic: %v", r)))
		}
	}()

	logger.AtLevel(log.LevelDebug, func(logFn log.LogFunc) {
		logFn("executing queued request",
			log.String("method", qr.method),
			log.String("url", qr.url),
			log.Duration("queued", p.clock.Since(qr.enqueuedAt)),
		)
	})

	req, err := qr.newHTTPRequest()
	if err != nil {
		qr.reject(newStatusError(0, "", fmt.Errorf("build request: %w", err)))
		return
	}

	var body json.RawMessage
	if err = restapi.DoRequestAndUnmarshalJSON(p.client, req, &body, logger); err != nil {
		gwErr := classifyCallError(err)
		status = gwErr.StatusCode
		logger.Warn("product API call failed",
			log.String("kind", string(gwErr.Kind)),
			log.Int("status", gwErr.StatusCode),
			log.String("details", gwErr.Details),
		)
		qr.reject(gwErr)
		return
	}
	status = http.StatusOK
	if qr.onSuccess != nil {
		qr.onSuccess()
	}
	qr.resolve(body)
}
