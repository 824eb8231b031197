/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit limits the rate of inbound API requests per client key.
//
// It protects the gateway queue from a single client flooding it: every queued call shares
// the one upstream budget, so inbound traffic is throttled before it is enqueued.
// Two algorithms are provided: leaky bucket (GCRA) and sliding window.
// Keys are kept in bounded in-memory stores.
package ratelimit
