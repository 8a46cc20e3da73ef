// Package heartbeat records periodic liveness documents for a process.
//
// Heartbeats are best-effort: the background loop downgrades write
// failures to warnings and keeps ticking. The one-shot Record method
// surfaces failures to its caller unchanged.
package heartbeat
