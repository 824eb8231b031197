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
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mjsoltani/peyvandyar/httpclient"
	"github.com/mjsoltani/peyvandyar/internal/ratewindow"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/lrucache"
	"github.com/mjsoltani/peyvandyar/service"
)

// Request types are used in logs and as metrics labels.
const (
	RequestTypeListProducts        = "list_products"
	RequestTypeGetProduct          = "get_product"
	RequestTypeUpdateProduct       = "update_product"
	RequestTypeBatchUpdateProducts = "batch_update_products"
)

// IdempotencyKeyHeader is sent with batch updates. Its value is the same for all attempts of one batch.
const IdempotencyKeyHeader = "Idempotency-Key"

const statusSampleInterval = time.Second

// Opts represents optional parameters for New.
type Opts struct {
	// Client is the upstream HTTP client. A client built by httpclient.New with default config is used if nil.
	Client *http.Client

	// Logger is a disabled logger if nil.
	Logger log.FieldLogger

	// Clock drives the rate window, the pacer, cache expiration and retry delays. Real clock is used if nil.
	Clock clockwork.Clock

	// Metrics collects gateway metrics. Metrics are disabled if nil.
	Metrics MetricsCollector

	// CacheMetrics collects product details cache metrics. Metrics are disabled if nil.
	CacheMetrics lrucache.MetricsCollector
}

// Gateway is a rate-limited, cached and retrying client of the upstream product API.
// All its operations share one request queue, one rate window and one cache.
// Gateway implements service.Unit: requests are only executed between Start and Stop.
type Gateway struct {
	cfg     Config
	baseURL string
	logger  log.FieldLogger
	clock   clockwork.Clock
	metrics MetricsCollector

	queue  *requestQueue
	window *ratewindow.Window
	cache  *responseCache
	proc   *processor
	unit   service.Unit
}

var _ service.Unit = (*Gateway)(nil)

// New creates a new Gateway.
func New(cfg *Config, opts Opts) (*Gateway, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	if opts.Client == nil {
		opts.Client = httpclient.New(httpclient.NewDefaultConfig())
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = disabledMetrics{}
	}

	window, err := ratewindow.NewWindow(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	if err != nil {
		return nil, fmt.Errorf("create rate window: %w", err)
	}
	cache, err := newResponseCache(cfg.Cache, opts.Clock, opts.CacheMetrics)
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}

	g := &Gateway{
		cfg:     *cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  opts.Logger,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		queue:   newRequestQueue(cfg.Queue.MaxLength),
		window:  window,
		cache:   cache,
	}
	g.proc = &processor{
		queue:   g.queue,
		window:  window,
		pacer:   ratewindow.NewPacer(cfg.RateLimit.MinDelay),
		client:  opts.Client,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	sampler := service.NewPeriodicWorker(service.WorkerFunc(func(ctx context.Context) error {
		g.metrics.SetRequestsInWindow(g.window.Count(g.clock.Now()))
		g.metrics.SetQueueLength(g.queue.len())
		return nil
	}), statusSampleInterval, opts.Logger)
	g.unit = service.NewCompositeUnit(service.NewWorkerUnit(g.proc), service.NewWorkerUnit(sampler))
	return g, nil
}

// Start runs the queue processor. It blocks until the gateway is stopped.
func (g *Gateway) Start(fatalErr chan<- error) {
	g.unit.Start(fatalErr)
}

// Stop stops the queue processor. Waiting requests fail with ErrStopped at once and no more requests are accepted.
// The call in progress is completed before Stop returns.
func (g *Gateway) Stop(gracefully bool) error {
	rejected := g.queue.close()
	for _, qr := range rejected {
		qr.reject(ErrStopped)
	}
	g.metrics.SetQueueLength(0)
	if len(rejected) != 0 {
		g.logger.Info("gateway is stopping, queued requests rejected", log.Int("rejected", len(rejected)))
	}
	return g.unit.Stop(gracefully)
}

// Stopped reports whether the gateway no longer accepts requests.
func (g *Gateway) Stopped() bool {
	return g.queue.isClosed()
}

// CacheStats returns the size and the keys of the product details cache.
func (g *Gateway) CacheStats() CacheStats {
	return g.cache.stats()
}

// ClearCache removes the entry of the given product id, or all entries if id is nil.
func (g *Gateway) ClearCache(id *string) {
	if id == nil {
		g.cache.invalidateAll()
		g.logger.Info("product cache cleared")
		return
	}
	g.cache.invalidate(*id)
	g.logger.Info("product cache entry cleared", log.String("product_id", *id))
}

// RateLimitStatus returns the current state of the outbound request budget.
func (g *Gateway) RateLimitStatus() RateLimitStatus {
	return RateLimitStatus{
		RequestsInWindow: g.window.Count(g.clock.Now()),
		MaxRequests:      g.window.MaxRequests(),
		QueueLength:      g.queue.len(),
		WindowMs:         g.window.Duration().Milliseconds(),
	}
}

// call enqueues an upstream call and waits for its result.
// Cancelling ctx stops the waiting, the call itself still runs once it reaches the head of the queue.
// onSuccess, if not nil, is run by the processor after a 2xx response and before the result is delivered,
// whether or not the caller is still waiting.
func (g *Gateway) call(
	ctx context.Context, requestType, method, path string, query url.Values, header http.Header, payload interface{},
	onSuccess func(),
) (json.RawMessage, error) {
	if httpclient.GetAuthTokenFromContext(ctx) == "" {
		return nil, newStatusError(http.StatusUnauthorized, "no bearer token for the product API", httpclient.ErrNoAuthToken)
	}

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}
	target := g.baseURL + path
	if len(query) != 0 {
		target += "?" + query.Encode()
	}

	qr := newQueuedRequest(ctx, requestType, method, target, header, body)
	qr.enqueuedAt = g.clock.Now()
	qr.onSuccess = onSuccess
	queueLen, err := g.queue.push(qr)
	g.metrics.SetQueueLength(queueLen)
	if err != nil {
		g.logger.Warn("request is not queued", log.String("request_type", requestType), log.Error(err))
		return nil, err
	}

	select {
	case res := <-qr.result:
		return res.body, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func productPath(id string) string {
	return "/products/" + url.PathEscape(id)
}

func newInvalidArgumentError(details string) *Error {
	return &Error{Kind: KindClient, StatusCode: http.StatusBadRequest, Message: MsgInvalidRequest, Details: details}
}

// newDecodeError reports a 2xx body that does not have the expected shape.
func newDecodeError(err error) *Error {
	return &Error{Kind: KindUpstream, StatusCode: http.StatusOK, Message: MsgRequestFailed, Details: err.Error(), Err: err}
}
