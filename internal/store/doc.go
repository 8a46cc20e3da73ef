// Package store provides typed access to the remote document store that
// holds trading state (positions, orders, alerts, heartbeats, run metadata).
//
// The package is split into three layers:
//
//   - Types: a document is addressed by a Ref (collection, key) and carries
//     a schema-free Payload. Queries combine field filters with logical AND.
//   - Driver: the backend contract. Drivers translate operations to a
//     concrete store (Firestore, Postgres, SQLite, in-memory) and classify
//     every transport failure into this package's error taxonomy.
//   - Gateway: the caller-facing surface. It borrows a handle per operation
//     from a HandleSource, retries transient failures with exponential
//     backoff, and honors the caller's deadline even mid-retry.
//
// Callers never see raw transport errors; everything surfaces as *Error
// with a Kind, or as the found=false outcome for absent documents.
package store
