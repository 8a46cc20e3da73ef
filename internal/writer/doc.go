// Package writer persists typed trading state (positions, orders,
// alerts, run metadata) through the document store gateway.
package writer
