/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a bounded in-memory cache with LRU eviction,
// lazy TTL expiration checked against an injectable clock, and Prometheus metrics.
package lrucache
