/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/mjsoltani/peyvandyar/internal/ratelimit"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/restapi"
)

// DefaultRateLimitMaxKeys is a default value of maximum keys number for the RateLimit middleware.
const DefaultRateLimitMaxKeys = 10000

// RateLimitErrCode is an error code that is used in a response body
// if the request is rejected by the middleware that limits the rate of HTTP requests.
const RateLimitErrCode = "tooManyRequests"

// RateLimitLogFieldKey it is the name of the logged field that contains a key for the requests rate limiter.
const RateLimitLogFieldKey = "rate_limit_key"

// Rate describes the frequency of requests.
type Rate = ratelimit.Rate

// RateLimitAlg represents a type for specifying rate-limiting algorithm.
type RateLimitAlg = ratelimit.Alg

// Supported rate-limiting algorithms.
const (
	RateLimitAlgLeakyBucket   = ratelimit.AlgLeakyBucket
	RateLimitAlgSlidingWindow = ratelimit.AlgSlidingWindow
)

// RateLimitGetKeyFunc is a function that is called for getting key for rate limiting.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// RateLimitOpts represents an options for the RateLimit middleware.
type RateLimitOpts struct {
	Alg      RateLimitAlg
	MaxBurst int

	// GetKey splits clients. All requests share one limit if it is nil.
	GetKey  RateLimitGetKeyFunc
	MaxKeys int

	// ResponseStatusCode is 429 by default.
	ResponseStatusCode int

	// DryRun makes the middleware only log requests exceeding the limit.
	DryRun bool
}

type rateLimitHandler struct {
	next           http.Handler
	limiter        ratelimit.Limiter
	getKey         RateLimitGetKeyFunc
	errDomain      string
	respStatusCode int
	dryRun         bool
}

// RateLimit is a middleware that limits the rate of HTTP requests with the leaky bucket algorithm.
func RateLimit(maxRate Rate, errDomain string) (func(next http.Handler) http.Handler, error) {
	return RateLimitWithOpts(maxRate, errDomain, RateLimitOpts{})
}

// RateLimitWithOpts is a configurable version of a middleware to limit the rate of HTTP requests.
func RateLimitWithOpts(maxRate Rate, errDomain string, opts RateLimitOpts) (func(next http.Handler) http.Handler, error) {
	maxKeys := 0
	if opts.GetKey != nil {
		maxKeys = opts.MaxKeys
		if maxKeys == 0 {
			maxKeys = DefaultRateLimitMaxKeys
		}
	}
	alg := opts.Alg
	if alg == "" {
		alg = RateLimitAlgLeakyBucket
	}
	limiter, err := ratelimit.NewLimiter(alg, maxRate, opts.MaxBurst, maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new rate limiter: %w", err)
	}
	respStatusCode := opts.ResponseStatusCode
	if respStatusCode == 0 {
		respStatusCode = http.StatusTooManyRequests
	}
	return func(next http.Handler) http.Handler {
		return &rateLimitHandler{
			next:           next,
			limiter:        limiter,
			getKey:         opts.GetKey,
			errDomain:      errDomain,
			respStatusCode: respStatusCode,
			dryRun:         opts.DryRun,
		}
	}, nil
}

// MustRateLimitWithOpts is a version of RateLimitWithOpts that panics if an error occurs.
func MustRateLimitWithOpts(maxRate Rate, errDomain string, opts RateLimitOpts) func(next http.Handler) http.Handler {
	mw, err := RateLimitWithOpts(maxRate, errDomain, opts)
	if err != nil {
		panic(err)
	}
	return mw
}

// GetRateLimitKeyByClientIP uses the client address as a rate limiting key.
func GetRateLimitKeyByClientIP(r *http.Request) (key string, bypass bool, err error) {
	return GetClientIP(r), false, nil
}

func (h *rateLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromContext(r.Context())

	var key string
	if h.getKey != nil {
		var bypass bool
		var err error
		if key, bypass, err = h.getKey(r); err != nil {
			h.respondError(rw, logger, fmt.Errorf("get rate limit key: %w", err), key)
			return
		}
		if bypass {
			h.next.ServeHTTP(rw, r)
			return
		}
	}

	allow, retryAfter, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		h.respondError(rw, logger, fmt.Errorf("requests rate limiting: %w", err), key)
		return
	}
	if allow {
		h.next.ServeHTTP(rw, r)
		return
	}

	if logger != nil {
		logger = logger.With(log.String(RateLimitLogFieldKey, key), log.String(userAgentLogFieldKey, r.UserAgent()))
	}
	if h.dryRun {
		if logger != nil {
			logger.Warn("too many requests, serving will be continued because of dry run mode")
		}
		h.next.ServeHTTP(rw, r)
		return
	}
	rw.Header().Set("Retry-After", formatRetryAfter(retryAfter))
	restapi.RespondError(rw, h.respStatusCode, restapi.NewError(h.errDomain, RateLimitErrCode, "Too many requests."), logger)
}

func (h *rateLimitHandler) respondError(rw http.ResponseWriter, logger log.FieldLogger, err error, key string) {
	if logger != nil {
		logger.Error(err.Error(), log.String(RateLimitLogFieldKey, key))
	}
	restapi.RespondInternalError(rw, h.errDomain, logger)
}

func formatRetryAfter(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
