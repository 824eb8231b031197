/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

// Package gateway mediates every call to the upstream product API.
//
// All outbound calls go through a single FIFO queue drained by one processor goroutine.
// Before each call the processor consults a sliding rate window (at most MaxRequests calls
// per Window) and a pacer that keeps MinDelay between the end of a call and the start of the next one.
// Product details are cached with a TTL and invalidated on every successful write made through the gateway,
// including writes whose caller stopped waiting.
// Mutations are retried with exponential backoff on transport and 5xx failures,
// 4xx responses are terminal.
package gateway
