// Package connection owns the lifecycle of the authenticated handle to
// the document store.
//
// A Manager dials through a backend-specific Dialer, caches the live
// handle for concurrent readers, and replaces it atomically when the
// gateway invalidates it after a connection failure. The manager itself
// never retries: a failed dial is reported to the caller of Acquire,
// and the gateway decides when to try again.
package connection
