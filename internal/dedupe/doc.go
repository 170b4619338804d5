// Package dedupe tracks ids that have already been processed within a time
// window. Checkout uses it to refuse a payment confirmation that was already
// turned into an order; with a storage slot configured the window spans
// process restarts.
package dedupe
