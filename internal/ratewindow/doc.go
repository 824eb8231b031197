/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

// Package ratewindow provides admission primitives for a single serialized stream of outbound calls.
//
// Window is an exact sliding log: a call made at t counts against the budget until t + window duration,
// so the budget renews smoothly instead of resetting at fixed boundaries.
// Pacer enforces a minimum spacing between consecutive calls.
// Both take the current time as an argument, which makes them deterministic under a fake clock.
package ratewindow
